// Package ping sends a single ICMP echo request to check that an instrument
// answers on the network.
package ping

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// DefaultTimeout bounds the wait for the echo reply.
const DefaultTimeout = 2 * time.Second

// protocolICMP is the IANA protocol number of ICMP for IPv4.
const protocolICMP = 1

var echoPayload = []byte("go-lxi reachability probe")

// ErrNoReply reports that no echo reply arrived in time.
var ErrNoReply = errors.New("ping: no echo reply")

// Pinger probes hosts with one ICMP echo request.
type Pinger struct {
	Timeout time.Duration
}

// New returns a Pinger with the given reply timeout; non-positive values use DefaultTimeout.
func New(timeout time.Duration) *Pinger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Pinger{Timeout: timeout}
}

// Ping sends one echo request to host and waits for the matching reply.
//
// An unprivileged ICMP datagram socket is tried first; when the kernel does
// not allow it a raw socket is used, which needs elevated privileges.
func (p *Pinger) Ping(ctx context.Context, host string) error {
	ip, err := resolve(ctx, host)
	if err != nil {
		return err
	}

	conn, privileged, err := listen()
	if err != nil {
		return err
	}
	defer conn.Close()

	id := os.Getpid() & 0xffff
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: 1, Data: echoPayload},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("ping: marshal echo: %w", err)
	}

	var dst net.Addr = &net.UDPAddr{IP: ip}
	if privileged {
		dst = &net.IPAddr{IP: ip}
	}

	deadline := time.Now().Add(p.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("ping: set deadline: %w", err)
	}

	if _, err := conn.WriteTo(wb, dst); err != nil {
		return fmt.Errorf("ping: send echo to %s: %w", ip, err)
	}

	rb := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, _, err := conn.ReadFrom(rb)
		if err != nil {
			return fmt.Errorf("%w from %s: %w", ErrNoReply, ip, err)
		}

		reply, err := icmp.ParseMessage(protocolICMP, rb[:n])
		if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}

		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || echo.Seq != 1 {
			continue
		}
		// Datagram sockets have their echo ID rewritten by the kernel.
		if privileged && echo.ID != id {
			continue
		}

		return nil
	}
}

func resolve(ctx context.Context, host string) (net.IP, error) {
	if host == "" {
		return nil, errors.New("ping: empty host")
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}

		return nil, fmt.Errorf("ping: %s is not an IPv4 address", host)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("ping: resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("ping: no IPv4 address for %s", host)
	}

	return ips[0], nil
}

func listen() (*icmp.PacketConn, bool, error) {
	if conn, err := icmp.ListenPacket("udp4", "0.0.0.0"); err == nil {
		return conn, false, nil
	}

	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, false, fmt.Errorf("ping: open ICMP socket: %w", err)
	}

	return conn, true, nil
}
