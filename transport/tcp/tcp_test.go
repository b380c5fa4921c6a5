package tcp_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alubinski/webnet/api"
	"github.com/alubinski/webnet/control"
	"github.com/alubinski/webnet/core/netaddr"
	"github.com/alubinski/webnet/socket"
	"github.com/alubinski/webnet/task"
	"github.com/alubinski/webnet/transport/tcp"
	"github.com/containerd/errdefs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/sync/errgroup"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"
)

var loopback = netaddr.MustParseEndpoint("127.0.0.1", 0)

func listen(t *testing.T, opts ...tcp.Option) *tcp.Acceptor {
	t.Helper()
	a, err := tcp.Listen(loopback, opts...)
	assert.NilError(t, err)
	t.Cleanup(func() { a.Close() })
	assert.Check(t, a.LocalEndpoint().Port() != 0)
	return a
}

func dialBlocking(t *testing.T, ep netaddr.Endpoint) *socket.TCPSocket {
	t.Helper()
	c, err := socket.NewTCP(socket.IPv4)
	assert.NilError(t, err)
	t.Cleanup(func() { c.Close() })
	assert.NilError(t, c.Connect(ep))
	return c
}

func acceptOne(t *testing.T, a *tcp.Acceptor) *tcp.Connection {
	t.Helper()
	conn, err := a.AsyncAccept().Get()
	assert.NilError(t, err)
	c := conn.(*tcp.Connection)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitSuspended(t *testing.T, m *control.Metrics, op string, atLeast float64) {
	t.Helper()
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if n := testutil.ToFloat64(m.Suspensions.WithLabelValues(op)); n >= atLeast {
			return poll.Success()
		}
		return poll.Continue("%s not suspended yet", op)
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(time.Millisecond))
}

func TestAsyncAcceptWithNotification(t *testing.T) {
	m := control.NewMetrics("test")
	a := listen(t, tcp.WithMetrics(m))

	tk := a.AsyncAccept()
	tk.Start()
	waitSuspended(t, m, control.DirAccept, 1)
	assert.Check(t, !tk.Done())

	client := dialBlocking(t, a.LocalEndpoint())
	a.NotifyReadable()

	conn, err := tk.Await(nil)
	assert.NilError(t, err)
	assert.Assert(t, conn != nil)
	defer conn.Close()
	assert.Check(t, conn.RemoteEndpoint().Port() != 0)
	assert.Check(t, conn.NativeHandle() != socket.InvalidHandle)

	cl, err := client.LocalEndpoint()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(conn.RemoteEndpoint(), cl))
	assert.Check(t, is.Equal(conn.LocalEndpoint(), a.LocalEndpoint()))
	assert.Check(t, is.Equal(testutil.ToFloat64(m.Accepted), 1.0))
	assert.Check(t, is.Equal(testutil.ToFloat64(m.Notifications.WithLabelValues(control.DirReadable)), 1.0))
}

func TestAsyncReadWriteWithNotification(t *testing.T) {
	m := control.NewMetrics("test")
	a := listen(t, tcp.WithMetrics(m))
	client := dialBlocking(t, a.LocalEndpoint())
	conn := acceptOne(t, a)

	buf := make([]byte, 64)
	rd := conn.AsyncRead(buf)
	rd.Start()
	waitSuspended(t, m, control.DirRead, 1)

	_, err := client.Write([]byte("hello_async"))
	assert.NilError(t, err)
	conn.NotifyReadable()

	n, err := rd.Await(nil)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, 11))
	assert.Check(t, is.Equal(string(buf[:n]), "hello_async"))

	wr := conn.AsyncWrite(buf[:n])
	wr.Start()
	conn.NotifyWritable()
	_, err = wr.Await(nil)
	assert.NilError(t, err)

	echo := make([]byte, 11)
	_, err = io.ReadFull(client, echo)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(echo), "hello_async"))
	assert.Check(t, is.Equal(testutil.ToFloat64(m.BytesRead), 11.0))
	assert.Check(t, is.Equal(testutil.ToFloat64(m.BytesWritten), 11.0))
}

func TestAsyncReadReportsEOF(t *testing.T) {
	a := listen(t)
	client := dialBlocking(t, a.LocalEndpoint())
	conn := acceptOne(t, a)

	assert.NilError(t, client.Shutdown(socket.ShutdownSend))
	n, err := conn.AsyncRead(make([]byte, 8)).Get()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, 0))
	assert.Check(t, !conn.Closed())
}

func TestSecondReaderIsRejected(t *testing.T) {
	m := control.NewMetrics("test")
	a := listen(t, tcp.WithMetrics(m))
	dialBlocking(t, a.LocalEndpoint())
	conn := acceptOne(t, a)

	first := conn.AsyncRead(make([]byte, 8))
	first.Start()
	waitSuspended(t, m, control.DirRead, 1)

	_, err := conn.AsyncRead(make([]byte, 8)).Await(nil)
	assert.Check(t, is.ErrorIs(err, task.ErrWaiterBusy))

	first.Destroy()
	// the slot is free again once the suspended read is gone
	second := conn.AsyncRead(make([]byte, 8))
	second.Start()
	waitSuspended(t, m, control.DirRead, 3)
	second.Destroy()
}

func TestDestroyedReadDoesNotSwallowData(t *testing.T) {
	m := control.NewMetrics("test")
	a := listen(t, tcp.WithMetrics(m))
	client := dialBlocking(t, a.LocalEndpoint())
	conn := acceptOne(t, a)

	rd := conn.AsyncRead(make([]byte, 8))
	rd.Start()
	waitSuspended(t, m, control.DirRead, 1)
	rd.Destroy()
	conn.NotifyReadable()

	_, err := client.Write([]byte("later"))
	assert.NilError(t, err)
	buf := make([]byte, 8)
	n, err := conn.AsyncRead(buf).Get()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(buf[:n]), "later"))
}

func TestCloseIsIdempotent(t *testing.T) {
	a := listen(t)
	dialBlocking(t, a.LocalEndpoint())
	conn := acceptOne(t, a)

	assert.NilError(t, conn.Close())
	assert.NilError(t, conn.Close())
	assert.Check(t, conn.Closed())
	assert.Check(t, is.Equal(conn.NativeHandle(), socket.InvalidHandle))

	_, err := conn.AsyncRead(make([]byte, 4)).Get()
	assert.Check(t, is.ErrorIs(err, api.ErrConnectionClosed))
	assert.Check(t, errdefs.IsUnavailable(err))
	_, err = conn.AsyncWrite([]byte("x")).Get()
	assert.Check(t, is.ErrorIs(err, api.ErrConnectionClosed))
}

func TestLargeWriteQueuesUntilWritable(t *testing.T) {
	m := control.NewMetrics("test")
	a := listen(t, tcp.WithMetrics(m))
	client := dialBlocking(t, a.LocalEndpoint())
	conn := acceptOne(t, a)

	payload := make([]byte, 16<<20)
	for i := range payload {
		payload[i] = byte(i * 31)
	}
	wr := conn.AsyncWrite(payload)
	wr.Start()
	waitSuspended(t, m, control.DirWrite, 1)
	assert.Check(t, conn.Pending() > 0)
	assert.Check(t, testutil.ToFloat64(m.PendingBytes) > 0)

	var g errgroup.Group
	received := make([]byte, len(payload))
	g.Go(func() error {
		_, err := io.ReadFull(client, received)
		return err
	})

	// Stand in for a readiness driver.
	deadline := time.Now().Add(10 * time.Second)
	for !wr.Done() && time.Now().Before(deadline) {
		conn.NotifyWritable()
		time.Sleep(time.Millisecond)
	}
	_, err := wr.Await(nil)
	assert.NilError(t, err)
	assert.NilError(t, g.Wait())
	assert.Check(t, bytes.Equal(received, payload))
	assert.Check(t, is.Equal(conn.Pending(), 0))
	assert.Check(t, is.Equal(testutil.ToFloat64(m.PendingBytes), 0.0))
	assert.Check(t, is.Equal(testutil.ToFloat64(m.BytesWritten), float64(len(payload))))
}

func TestWritesCompleteInIssueOrder(t *testing.T) {
	a := listen(t)
	client := dialBlocking(t, a.LocalEndpoint())
	conn := acceptOne(t, a)

	var g errgroup.Group
	var got bytes.Buffer
	g.Go(func() error {
		_, err := io.Copy(&got, client)
		return err
	})

	var want bytes.Buffer
	for i := 0; i < 64; i++ {
		chunk := bytes.Repeat([]byte{byte('a' + i%26)}, 1<<14+i)
		want.Write(chunk)
		_, err := conn.AsyncWrite(chunk).Get()
		assert.NilError(t, err)
	}
	assert.NilError(t, conn.Close())
	assert.NilError(t, g.Wait())
	assert.Check(t, bytes.Equal(got.Bytes(), want.Bytes()))
}

func TestFlushFailureClosesConnection(t *testing.T) {
	m := control.NewMetrics("test")
	a := listen(t, tcp.WithMetrics(m))
	client := dialBlocking(t, a.LocalEndpoint())
	conn := acceptOne(t, a)

	wr := conn.AsyncWrite(make([]byte, 16<<20))
	wr.Start()
	waitSuspended(t, m, control.DirWrite, 1)

	// Closing with unread data makes the peer reset the stream.
	assert.NilError(t, client.Close())
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		conn.NotifyWritable()
		if conn.Closed() {
			return poll.Success()
		}
		return poll.Continue("connection still open")
	}, poll.WithTimeout(5*time.Second), poll.WithDelay(time.Millisecond))

	_, err := wr.Await(nil)
	var aerr *api.Error
	assert.Assert(t, errors.As(err, &aerr), "got %v", err)
	assert.Check(t, is.Equal(aerr.Code, api.ErrCodeSend))
	assert.Check(t, is.Equal(testutil.ToFloat64(m.FlushFailures), 1.0))
	assert.Check(t, is.Equal(conn.Pending(), 0))
}

func TestDestroyedWriteStillFlushesQueuedBytes(t *testing.T) {
	m := control.NewMetrics("test")
	a := listen(t, tcp.WithMetrics(m))
	client := dialBlocking(t, a.LocalEndpoint())
	conn := acceptOne(t, a)

	payload := make([]byte, 16<<20)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	wr := conn.AsyncWrite(payload)
	wr.Start()
	waitSuspended(t, m, control.DirWrite, 1)
	queued := conn.Pending()
	assert.Assert(t, queued > 0)

	wr.Destroy()
	assert.Check(t, is.Equal(conn.Pending(), queued))

	tail := []byte("tail")
	want := append(append([]byte(nil), payload...), tail...)
	received := make([]byte, len(want))
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.ReadFull(client, received)
		return err
	})

	next := conn.AsyncWrite(tail)
	next.Start()
	deadline := time.Now().Add(10 * time.Second)
	for !next.Done() && time.Now().Before(deadline) {
		conn.NotifyWritable()
		time.Sleep(time.Millisecond)
	}
	_, err := next.Await(nil)
	assert.NilError(t, err)
	assert.NilError(t, g.Wait())
	assert.Check(t, bytes.Equal(received, want))
	assert.Check(t, is.Equal(conn.Pending(), 0))
}

func TestNewConnectionMakesSocketNonBlocking(t *testing.T) {
	m := control.NewMetrics("test")
	a := listen(t)
	client := dialBlocking(t, a.LocalEndpoint())
	acceptOne(t, a)
	assert.Assert(t, !client.IsNonBlocking())

	conn, err := tcp.NewConnection(client, netaddr.Endpoint{}, tcp.WithMetrics(m))
	assert.NilError(t, err)
	assert.Check(t, client.IsNonBlocking())
	assert.Check(t, is.Equal(conn.RemoteEndpoint().Port(), a.LocalEndpoint().Port()))

	rd := conn.AsyncRead(make([]byte, 8))
	rd.Start()
	waitSuspended(t, m, control.DirRead, 1)

	done := make(chan struct{})
	go func() {
		conn.NotifyWritable()
		conn.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked behind a pending read")
	}

	conn.NotifyReadable()
	_, err = rd.Await(nil)
	assert.Check(t, is.ErrorIs(err, api.ErrConnectionClosed))
}

func TestAsyncConnect(t *testing.T) {
	m := control.NewMetrics("test")
	a := listen(t)

	c, err := tcp.NewClientConnection(socket.IPv4, tcp.WithMetrics(m))
	assert.NilError(t, err)
	defer c.Close()

	_, err = c.AsyncConnect(a.LocalEndpoint()).Get()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(c.RemoteEndpoint(), a.LocalEndpoint()))
	assert.Check(t, c.LocalEndpoint().Port() != 0)

	srv := acceptOne(t, a)
	assert.Check(t, is.Equal(srv.RemoteEndpoint(), c.LocalEndpoint()))

	_, err = c.AsyncWrite([]byte("ping")).Get()
	assert.NilError(t, err)
	buf := make([]byte, 4)
	n, err := srv.AsyncRead(buf).Get()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(buf[:n]), "ping"))
}

func TestAsyncConnectWithNotification(t *testing.T) {
	a := listen(t)
	c, err := tcp.NewClientConnection(socket.IPv4)
	assert.NilError(t, err)
	defer c.Close()

	tk := c.AsyncConnect(a.LocalEndpoint())
	tk.Start()
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		c.NotifyWritable()
		if tk.Done() {
			return poll.Success()
		}
		return poll.Continue("connect in flight")
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(time.Millisecond))
	_, err = tk.Await(nil)
	assert.NilError(t, err)
}

func TestDial(t *testing.T) {
	a := listen(t)
	c, err := tcp.Dial(a.LocalEndpoint()).Get()
	assert.NilError(t, err)
	defer c.Close()
	assert.Check(t, is.Equal(c.RemoteEndpoint(), a.LocalEndpoint()))
}

func TestDialRefused(t *testing.T) {
	a, err := tcp.Listen(loopback)
	assert.NilError(t, err)
	ep := a.LocalEndpoint()
	assert.NilError(t, a.Close())

	_, err = tcp.Dial(ep).Get()
	var aerr *api.Error
	assert.Assert(t, errors.As(err, &aerr), "got %v", err)
	assert.Check(t, is.Equal(aerr.Code, api.ErrCodeConnect))
	var serr *socket.SystemError
	assert.Check(t, errors.As(err, &serr))
}

func TestAcceptorCloseResumesAccept(t *testing.T) {
	m := control.NewMetrics("test")
	a, err := tcp.Listen(loopback, tcp.WithMetrics(m))
	assert.NilError(t, err)

	tk := a.AsyncAccept()
	tk.Start()
	waitSuspended(t, m, control.DirAccept, 1)

	assert.NilError(t, a.Close())
	assert.NilError(t, a.Close())
	_, err = tk.Await(nil)
	assert.Check(t, is.ErrorIs(err, api.ErrAcceptorClosed))
}

func TestAcceptorFromBlockingSocket(t *testing.T) {
	s, err := socket.NewTCP(socket.IPv4)
	assert.NilError(t, err)
	a, err := tcp.NewAcceptorFromSocket(s)
	assert.NilError(t, err)
	defer a.Close()
	assert.Check(t, s.IsNonBlocking())
	assert.NilError(t, a.Bind(loopback))
	assert.NilError(t, a.Listen(0))

	dialBlocking(t, a.LocalEndpoint())
	conn, err := a.AsyncAccept().Get()
	assert.NilError(t, err)
	assert.NilError(t, conn.Close())

	_, err = tcp.NewAcceptorFromSocket(socket.Empty(socket.IPv4))
	assert.Check(t, is.ErrorIs(err, api.ErrInvalidSocket))
}

func TestNewConnectionRejectsEmptySocket(t *testing.T) {
	_, err := tcp.NewConnection(socket.Empty(socket.IPv4), netaddr.Endpoint{})
	assert.Check(t, errdefs.IsFailedPrecondition(err))
}

func TestDispatchDrivesConnection(t *testing.T) {
	m := control.NewMetrics("test")
	a := listen(t, tcp.WithMetrics(m))
	client := dialBlocking(t, a.LocalEndpoint())
	conn := acceptOne(t, a)

	buf := make([]byte, 16)
	rd := conn.AsyncRead(buf)
	rd.Start()
	waitSuspended(t, m, control.DirRead, 1)
	_, err := client.Write([]byte("evt"))
	assert.NilError(t, err)

	api.Dispatch(api.Event{Handle: conn.NativeHandle(), Ready: api.Hangup}, conn)
	n, err := rd.Await(nil)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(buf[:n]), "evt"))
	assert.Check(t, is.Equal(testutil.ToFloat64(m.Notifications.WithLabelValues(control.DirWritable)), 1.0))
}
