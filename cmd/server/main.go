package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chatroom/internal/server"
)

func main() {
	addr := flag.String("addr", ":12345", "TCP address to listen on")
	wsAddr := flag.String("ws", "", "optional websocket bridge address (e.g. :8080)")
	flag.Parse()

	srv := server.New()

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("[server] shutting down…")
		srv.Shutdown()
	}()

	if *wsAddr != "" {
		go func() {
			if err := srv.ListenAndServeWS(*wsAddr); err != nil {
				log.Fatalf("websocket bridge: %v", err)
			}
		}()
	}

	if err := srv.ListenAndServe(*addr); err != nil {
		log.Fatalf("start server: %v", err)
	}
}
