// Command wscat connects to a streaming endpoint, forwards stdin lines as
// JSON strings and prints everything the server sends back.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/panyam/wirekit/codec"
	"github.com/panyam/wirekit/ws"
)

func main() {
	urlStr := flag.String("url", "http://localhost:8085/subscribe", "endpoint to connect to (http/https schemes are upgraded)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cc, err := ws.Dial[any, any](*urlStr, codec.JSON{}, &ws.Config{Logger: logger})
	if err != nil {
		logger.Fatal("dial failed", zap.String("url", *urlStr), zap.Error(err))
	}
	defer cc.Close()

	cc.View().On(func(msg any) {
		fmt.Printf("<< %v\n", msg)
	})

	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if err := cc.View().Write(sc.Text()); err != nil {
				logger.Warn("write failed", zap.Error(err))
				return
			}
		}
		cc.Close()
	}()

	<-cc.Done()
	logger.Info("connection closed")
}
