// Command asyncio-echo is a minimal TCP echo server demonstrating
// TaskLoop, Reactor and ServerSocket/Socket wired together, as sketched in
// SPEC_FULL.md §11. It binds to the port given by the -addr flag (default
// 127.0.0.1:9999), echoes every byte received back to its sender, and
// exits when the listener fails or is interrupted.
//
// Run with: go run ./cmd/asyncio-echo -addr 127.0.0.1:9999
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/netventure/asyncio"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9999", "address to listen on")
	flag.Parse()

	host, portStr, err := net.SplitHostPort(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -addr:", err)
		os.Exit(1)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid port:", err)
		os.Exit(1)
	}
	var ip [4]byte
	if parsed := net.ParseIP(host).To4(); parsed != nil {
		copy(ip[:], parsed)
	}

	loop := asyncio.NewTaskLoop(asyncio.WithLogger(asyncio.NoOpLogger{}))
	sched := asyncio.NewPromiseScheduler(loop)
	reactor, err := asyncio.NewReactor(loop)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reactor init failed:", err)
		os.Exit(1)
	}
	defer reactor.Close()

	listener, err := asyncio.NewServerSocket(reactor, sched)
	if err != nil {
		fmt.Fprintln(os.Stderr, "listener create failed:", err)
		os.Exit(1)
	}
	if err := listener.Bind(ip, port); err != nil {
		fmt.Fprintln(os.Stderr, "bind failed:", err)
		os.Exit(1)
	}
	if err := listener.Listen(128); err != nil {
		fmt.Fprintln(os.Stderr, "listen failed:", err)
		os.Exit(1)
	}

	listener.On(func(ev asyncio.SocketEvent) {
		switch ev.Kind {
		case asyncio.SocketEventConnect:
			client := ev.Client
			client.On(func(cev asyncio.SocketEvent) {
				switch cev.Kind {
				case asyncio.SocketEventData:
					client.Write(cev.Data)
				case asyncio.SocketEventEnd:
					client.Close()
				}
			})
		case asyncio.SocketEventError:
			fmt.Fprintln(os.Stderr, "listener error:", cevErr(ev))
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	loop.Add(func() {
		select {
		case <-sigCh:
			listener.Close()
			os.Exit(0)
		default:
		}
	})

	loop.Run()
}

func cevErr(ev asyncio.SocketEvent) error { return ev.Err }
