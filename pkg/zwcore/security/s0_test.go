package security

import (
	"context"
	"testing"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/transport"
)

func TestSecureBootstrapS0_NilManager(t *testing.T) {
	b := NewBootstrap(nil)
	n := core.NewNode(2, nil, nil)
	b.SecureBootstrapS0(context.Background(), n, false, false)
	if n.IsSecure() {
		t.Error("node marked secure with no security manager configured")
	}
}

func TestSecureBootstrapS0_NotAdvertisedAndNotAssumed(t *testing.T) {
	m, err := NewNetworkKeyManager("000102030405060708090a0b0c0d0e0f")
	if err != nil {
		t.Fatalf("NewNetworkKeyManager error = %v", err)
	}
	b := NewBootstrap(m)
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)

	b.SecureBootstrapS0(context.Background(), n, false, false)
	if n.IsSecure() {
		t.Error("node marked secure without advertising Security CC and without assumeSecure")
	}
	if len(tr.Sent()) != 0 {
		t.Errorf("transport calls = %v, want none (bootstrap should not have run)", tr.Sent())
	}
}

func TestSecureBootstrapS0_HappyPath(t *testing.T) {
	m, err := NewNetworkKeyManager("000102030405060708090a0b0c0d0e0f")
	if err != nil {
		t.Fatalf("NewNetworkKeyManager error = %v", err)
	}
	b := NewBootstrap(m)
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCSecurity, core.CCInfo{Version: 1})

	tr.SetResponder(core.FunctionTypeSecuritySchemeGet, func(any) (any, error) { return nil, nil })
	tr.SetResponder(core.FunctionTypeSecurityNonceGet, func(any) (any, error) {
		return core.SecurityNonceGetResponse{Nonce: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}, nil
	})
	tr.SetResponder(core.FunctionTypeSecurityNetworkKeySet, func(any) (any, error) { return nil, nil })

	b.SecureBootstrapS0(context.Background(), n, true, false)
	if !n.IsSecure() {
		t.Fatal("node not marked secure after a successful bootstrap")
	}
}

func TestSecureBootstrapS0_FallsBackOnFailure(t *testing.T) {
	m, err := NewNetworkKeyManager("000102030405060708090a0b0c0d0e0f")
	if err != nil {
		t.Fatalf("NewNetworkKeyManager error = %v", err)
	}
	b := NewBootstrap(m)
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCSecurity, core.CCInfo{Version: 1})

	tr.SetResponder(core.FunctionTypeSecuritySchemeGet, func(any) (any, error) {
		return nil, &core.NodeTimeoutError{Step: "security scheme get"}
	})

	b.SecureBootstrapS0(context.Background(), n, true, false)
	if n.IsSecure() {
		t.Error("node left secure after a failed bootstrap step")
	}
	if _, ok := n.CCInfo(core.CCSecurity); ok {
		t.Error("Security CC not removed after a failed bootstrap")
	}
}

func TestSecureBootstrapS0_AssumeSecureAddsCC(t *testing.T) {
	m, err := NewNetworkKeyManager("000102030405060708090a0b0c0d0e0f")
	if err != nil {
		t.Fatalf("NewNetworkKeyManager error = %v", err)
	}
	b := NewBootstrap(m)
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)

	tr.SetResponder(core.FunctionTypeSecuritySchemeGet, func(any) (any, error) { return nil, nil })
	tr.SetResponder(core.FunctionTypeSecurityNonceGet, func(any) (any, error) {
		return core.SecurityNonceGetResponse{Nonce: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}, nil
	})
	tr.SetResponder(core.FunctionTypeSecurityNetworkKeySet, func(any) (any, error) { return nil, nil })

	b.SecureBootstrapS0(context.Background(), n, true, false)
	if !n.IsSecure() {
		t.Fatal("replace-failed node (no prior NIF) not secured despite assumeSecure=true")
	}
}
