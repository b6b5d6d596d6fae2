package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"

	"github.com/frobware/go-pfq"
)

// PeerCred is the AuthInfo of a connection accepted on the control
// socket: the credentials of the connecting process as reported by
// SO_PEERCRED.
type PeerCred struct {
	credentials.CommonAuthInfo
	Pid int32
	Uid uint32
	Gid uint32
}

// AuthType implements credentials.AuthInfo.
func (PeerCred) AuthType() string { return "peercred" }

// peerCredentials captures SO_PEERCRED during the server handshake. It
// adds no transport security; the control socket is local and guarded
// by file permissions.
type peerCredentials struct{}

func (peerCredentials) ClientHandshake(_ context.Context, _ string, conn net.Conn) (net.Conn, credentials.AuthInfo, error) {
	return conn, PeerCred{CommonAuthInfo: credentials.CommonAuthInfo{SecurityLevel: credentials.NoSecurity}}, nil
}

func (peerCredentials) ServerHandshake(conn net.Conn) (net.Conn, credentials.AuthInfo, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, nil, fmt.Errorf("peer credentials need a unix socket, got %T", conn)
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return nil, nil, fmt.Errorf("peer credentials: %w", err)
	}
	var (
		cred    *unix.Ucred
		credErr error
	)
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return nil, nil, fmt.Errorf("peer credentials: %w", err)
	}
	if credErr != nil {
		return nil, nil, fmt.Errorf("SO_PEERCRED: %w", credErr)
	}
	return conn, PeerCred{
		CommonAuthInfo: credentials.CommonAuthInfo{SecurityLevel: credentials.NoSecurity},
		Pid:            cred.Pid,
		Uid:            cred.Uid,
		Gid:            cred.Gid,
	}, nil
}

func (peerCredentials) Info() credentials.ProtocolInfo {
	return credentials.ProtocolInfo{SecurityProtocol: "peercred"}
}

func (c peerCredentials) Clone() credentials.TransportCredentials { return c }

func (peerCredentials) OverrideServerName(string) error { return nil }

var errNoPeerCred = errors.New("caller credentials unavailable")

// taskFromContext returns the process on whose behalf the request runs.
func taskFromContext(ctx context.Context) (pfq.TaskID, error) {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return 0, errNoPeerCred
	}
	cred, ok := p.AuthInfo.(PeerCred)
	if !ok || cred.Pid <= 0 {
		return 0, errNoPeerCred
	}
	return pfq.TaskID(cred.Pid), nil
}
