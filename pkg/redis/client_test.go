package redis

import "testing"

func TestKeyBuilders(t *testing.T) {
	c := &Client{}

	if got := c.IdempotencyKey("webhook", "abc"); got != "sh:idempotency:webhook:abc" {
		t.Fatalf("unexpected idempotency key %q", got)
	}
	if got := c.AccessSessionKey("a1"); got != "sh:session:access:a1" {
		t.Fatalf("unexpected session key %q", got)
	}
	if got := c.UserSessionIndexKey("u1"); got != "sh:session:user:u1" {
		t.Fatalf("unexpected user index key %q", got)
	}
	if got := c.ClaimsKey("u1"); got != "sh:claims:u1" {
		t.Fatalf("unexpected claims key %q", got)
	}
	if got := c.LockKey("cron"); got != "sh:lock:cron" {
		t.Fatalf("unexpected lock key %q", got)
	}
}

func TestKeyBuilderSkipsEmptyParts(t *testing.T) {
	c := &Client{}
	if got := c.IdempotencyKey("", "abc"); got != "sh:idempotency:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	c := &Client{}
	if err := c.Set(nil, "k", "v", 0); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if _, err := c.Get(nil, "k"); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
}
