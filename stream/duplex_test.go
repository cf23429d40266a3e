package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplexDirectionIsolation(t *testing.T) {
	d := NewDuplex[int, int]()

	var serverSaw, clientSaw []int
	_, err := d.Server().On(func(v int) { serverSaw = append(serverSaw, v) })
	require.NoError(t, err)
	_, err = d.Client().On(func(v int) { clientSaw = append(clientSaw, v) })
	require.NoError(t, err)

	// A message written on the server view is observed only by client
	// listeners, and vice versa.
	require.NoError(t, d.Server().Write(5))
	assert.Equal(t, []int{5}, clientSaw)
	assert.Empty(t, serverSaw)

	require.NoError(t, d.Client().Write(9))
	assert.Equal(t, []int{9}, serverSaw)
	assert.Equal(t, []int{5}, clientSaw)
}

func TestDuplexDifferentTypes(t *testing.T) {
	d := NewDuplex[string, int]()

	var replies []int
	d.Client().On(func(v int) { replies = append(replies, v) })

	var requests []string
	d.Server().On(func(v string) { requests = append(requests, v) })

	d.Client().Write("ping")
	d.Server().Write(42)

	assert.Equal(t, []string{"ping"}, requests)
	assert.Equal(t, []int{42}, replies)
}

func TestSealIrreversibility(t *testing.T) {
	d := NewDuplex[int, int]()
	d.CloseServer()

	srv := d.Server()
	assert.ErrorIs(t, srv.Write(1), ErrViewClosed)
	assert.ErrorIs(t, srv.Fail(assert.AnError), ErrViewClosed)
	assert.ErrorIs(t, srv.Close(), ErrViewClosed)
	assert.ErrorIs(t, srv.AddListener(&Listener[int]{}), ErrViewClosed)
	_, err := srv.On(func(int) {})
	assert.ErrorIs(t, err, ErrViewClosed)
	assert.ErrorIs(t, srv.RemoveListener(&Listener[int]{}), ErrViewClosed)

	// The opposite view keeps operating normally.
	var got []int
	// Listeners on the client view observe ToClient, fed by the driver.
	_, err = d.Client().On(func(v int) { got = append(got, v) })
	require.NoError(t, err)
	d.ToClient.Write(3)
	assert.Equal(t, []int{3}, got)
	require.NoError(t, d.Client().Write(8))
}

func TestCloseClientLeavesServerAlive(t *testing.T) {
	d := NewDuplex[int, int]()
	d.CloseClient()

	assert.ErrorIs(t, d.Client().Write(1), ErrViewClosed)

	var got []int
	_, err := d.Server().On(func(v int) { got = append(got, v) })
	require.NoError(t, err)
	d.ToServer.Write(4)
	assert.Equal(t, []int{4}, got)
	require.NoError(t, d.Server().Write(2))
}
