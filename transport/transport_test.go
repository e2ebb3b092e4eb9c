package transport_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/nicholastmosher/flipper/transport"
)

type slowReadWriter struct {
	delay time.Duration
}

func (s slowReadWriter) Read(b []byte) (int, error) {
	time.Sleep(s.delay)
	return len(b), nil
}

func (s slowReadWriter) Write(b []byte) (int, error) {
	time.Sleep(s.delay)
	return len(b), nil
}

func TestTimeoutReadExpires(t *testing.T) {
	to := transport.NewTimeout(slowReadWriter{delay: 50 * time.Millisecond}, 5*time.Millisecond)
	_, err := to.Read(make([]byte, 4))
	if err != transport.ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestTimeoutWriteExpires(t *testing.T) {
	to := transport.NewTimeout(slowReadWriter{delay: 50 * time.Millisecond}, 5*time.Millisecond)
	_, err := to.Write(make([]byte, 4))
	if err != transport.ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestMockWriteAllThenReadExact(t *testing.T) {
	m := transport.NewMock()
	if err := m.WriteAll([]byte("hello")); err != nil {
		t.Fatalf("WriteAll returned error: %v", err)
	}
	if !bytes.Equal(m.Written.Bytes(), []byte("hello")) {
		t.Errorf("Written = %q, want %q", m.Written.Bytes(), "hello")
	}

	m.Feed([]byte{1, 2, 3, 4})
	buf := make([]byte, 4)
	if err := m.ReadExact(buf); err != nil {
		t.Fatalf("ReadExact returned error: %v", err)
	}
	if !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Errorf("buf = % X, want 01 02 03 04", buf)
	}
}

func TestMockReadExactSpansMultipleFeeds(t *testing.T) {
	m := transport.NewMock()
	m.Feed([]byte{1, 2})
	m.Feed([]byte{3, 4})
	buf := make([]byte, 4)
	if err := m.ReadExact(buf); err != nil {
		t.Fatalf("ReadExact returned error: %v", err)
	}
	if !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Errorf("buf = % X, want 01 02 03 04", buf)
	}
}

func TestMockReadExactExhausted(t *testing.T) {
	m := transport.NewMock()
	m.Feed([]byte{1, 2})
	buf := make([]byte, 4)
	if err := m.ReadExact(buf); err != transport.ErrMockExhausted {
		t.Fatalf("err = %v, want ErrMockExhausted", err)
	}
}

func TestMockClosedRejectsIO(t *testing.T) {
	m := transport.NewMock()
	m.Close()
	if err := m.WriteAll([]byte("x")); err == nil {
		t.Fatal("expected WriteAll to fail after Close")
	}
	if err := m.ReadExact(make([]byte, 1)); err == nil {
		t.Fatal("expected ReadExact to fail after Close")
	}
}
