package mcp

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeConn struct {
	closed        bool
	writeDeadline time.Time
}

func (f *fakeConn) WriteMessage(int, []byte) error    { return errors.New("not implemented") }
func (f *fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, errors.New("not implemented") }
func (f *fakeConn) SetWriteDeadline(t time.Time) error {
	f.writeDeadline = t
	return nil
}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) WriteControl(int, []byte, time.Time) error { return nil }
func (f *fakeConn) Close() error                              { f.closed = true; return nil }

func testClient(dial DialFunc) *Client {
	c := NewClient("127.0.0.1:0", nil)
	c.dial = dial
	return c
}

func TestConnectWithRetry_FailsTwiceThenSucceeds(t *testing.T) {
	attempts := 0
	c := testClient(func(ctx context.Context, url string) (wireConn, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return &fakeConn{}, nil
	})

	start := time.Now()
	ok := c.ConnectWithRetry(context.Background(), 3, 20*time.Millisecond)
	elapsed := time.Since(start)

	if !ok {
		t.Fatalf("ConnectWithRetry=false, want true")
	}
	if attempts != 3 {
		t.Fatalf("attempts=%d, want 3", attempts)
	}
	if !c.Connected() {
		t.Fatalf("Connected=false after successful retry")
	}
	// Two failed attempts means exactly two interleaving sleeps.
	if elapsed < 40*time.Millisecond {
		t.Fatalf("elapsed=%v, want >= 40ms (two sleep intervals)", elapsed)
	}
}

func TestConnectWithRetry_ExhaustsBudgetWithoutRaising(t *testing.T) {
	attempts := 0
	c := testClient(func(ctx context.Context, url string) (wireConn, error) {
		attempts++
		return nil, errors.New("connection refused")
	})

	ok := c.ConnectWithRetry(context.Background(), 3, time.Millisecond)
	if ok {
		t.Fatalf("ConnectWithRetry=true, want false")
	}
	if attempts != 3 {
		t.Fatalf("attempts=%d, want exactly max_retries=3", attempts)
	}
	if c.Connected() {
		t.Fatalf("Connected=true after exhaustion")
	}
}

func TestConnect_IsIdempotentWhenConnected(t *testing.T) {
	dials := 0
	c := testClient(func(ctx context.Context, url string) (wireConn, error) {
		dials++
		return &fakeConn{}, nil
	})

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect error: %v", err)
	}
	if dials != 1 {
		t.Fatalf("dials=%d, want 1", dials)
	}
}

func TestDisconnect_AbsentConnection(t *testing.T) {
	c := testClient(nil)
	err := c.Disconnect(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Disconnect error=%v, want ErrNotConnected", err)
	}
}

func TestDisconnect_ClosesConnection(t *testing.T) {
	conn := &fakeConn{}
	c := testClient(func(ctx context.Context, url string) (wireConn, error) { return conn, nil })
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect error: %v", err)
	}
	if !conn.closed {
		t.Fatalf("connection not closed")
	}
	if c.Connected() {
		t.Fatalf("Connected=true after disconnect")
	}
}

func TestCall_UsesConfiguredCallTimeout(t *testing.T) {
	conn := &fakeConn{}
	c := testClient(func(ctx context.Context, url string) (wireConn, error) { return conn, nil })
	c.SetCallTimeout(250 * time.Millisecond)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	before := time.Now()
	_, _ = c.Call(context.Background(), "calendar", nil)

	want := before.Add(250 * time.Millisecond)
	if conn.writeDeadline.Before(want) || conn.writeDeadline.After(want.Add(time.Second)) {
		t.Fatalf("write deadline=%v, want about %v", conn.writeDeadline, want)
	}
}

func TestCall_NotConnected(t *testing.T) {
	c := testClient(nil)
	if _, err := c.Call(context.Background(), "calendar", nil); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Call error=%v, want ErrNotConnected", err)
	}
}
