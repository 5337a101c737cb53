package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type chatService struct {
	connected  bool
	messages   []string
	reasons    []string
	errs       []error
	counts     []int
	everything [][]any
}

func (s *chatService) Connect() {
	s.connected = true
}

func (s *chatService) Message(text string) {
	s.messages = append(s.messages, text)
}

func (s *chatService) Disconnect(reason string) {
	s.reasons = append(s.reasons, reason)
}

func (s *chatService) ConnectError(err error) {
	s.errs = append(s.errs, err)
}

func (s *chatService) Count(n int) {
	s.counts = append(s.counts, n)
}

func (s *chatService) All(args ...any) {
	s.everything = append(s.everything, args)
}

func (s *chatService) Fail() error {
	return errors.New("handler failed")
}

func (s *chatService) private() {}

func TestEventListener_PreservesRegistrationOrder(t *testing.T) {
	t.Parallel()

	hs := New()
	hs.EventListener((*chatService)(nil), "Message", "chat")
	hs.OnConnect((*chatService)(nil), "Connect")
	hs.OnDisconnect((*chatService)(nil), "Disconnect")
	hs.OnConnectError((*chatService)(nil), "ConnectError")

	got := hs.Lookup(&chatService{})

	require.Equal(t, []Metadata{
		{Method: "Message", Event: "chat"},
		{Method: "Connect", Event: "connect"},
		{Method: "Disconnect", Event: "disconnect"},
		{Method: "ConnectError", Event: "connect_error"},
	}, got)
	require.Equal(t, 4, hs.Len())
}

func TestEventListener_SameMethodSeveralEvents(t *testing.T) {
	t.Parallel()

	hs := New()
	hs.EventListener((*chatService)(nil), "All", "a")
	hs.EventListener((*chatService)(nil), "All", "b")

	require.Len(t, hs.Lookup((*chatService)(nil)), 2)
}

func TestEventListener_Panics(t *testing.T) {
	t.Parallel()

	hs := New()
	hs.OnConnect((*chatService)(nil), "Connect")

	require.Panics(t, func() { hs.OnConnect((*chatService)(nil), "Connect") }, "duplicate tag")
	require.Panics(t, func() { hs.EventListener(nil, "Connect", "connect") }, "untyped nil component")
	require.Panics(t, func() { hs.EventListener((*chatService)(nil), "", "connect") }, "empty method")
	require.Panics(t, func() { hs.EventListener((*chatService)(nil), "Connect", "") }, "empty event")
}

func TestLookup_KeyedByDynamicType(t *testing.T) {
	t.Parallel()

	hs := New()
	hs.OnConnect((*chatService)(nil), "Connect")

	require.Empty(t, hs.Lookup(chatService{}), "value and pointer types are distinct")
	require.Empty(t, hs.Lookup(nil))
}

func TestBind_UsesOriginalReceiver(t *testing.T) {
	t.Parallel()

	svc := &chatService{}
	invoke, err := Bind(svc, Metadata{Method: "Connect", Event: "connect"})
	require.NoError(t, err)

	require.NoError(t, invoke())

	require.True(t, svc.connected)
}

func TestBind_ArgumentMapping(t *testing.T) {
	t.Parallel()

	svc := &chatService{}
	bind := func(method string) Invoker {
		invoke, err := Bind(svc, Metadata{Method: method, Event: "e"})
		require.NoError(t, err)
		return invoke
	}
	cause := errors.New("refused")

	require.NoError(t, bind("Message")("hello", "extra", 3))
	require.NoError(t, bind("Message")())
	require.NoError(t, bind("ConnectError")(cause))
	require.NoError(t, bind("Count")(float64(7)))
	require.NoError(t, bind("All")(1, "two", nil))
	require.NoError(t, bind("All")())

	require.Equal(t, []string{"hello", ""}, svc.messages)
	require.Equal(t, []error{cause}, svc.errs)
	require.Equal(t, []int{7}, svc.counts)
	require.Len(t, svc.everything, 2)
	require.Equal(t, []any{1, "two", nil}, svc.everything[0])
	require.Empty(t, svc.everything[1])
}

func TestBind_ArgumentTypeMismatch(t *testing.T) {
	t.Parallel()

	invoke, err := Bind(&chatService{}, Metadata{Method: "Message", Event: "chat"})
	require.NoError(t, err)

	err = invoke(map[string]any{"text": "hi"})

	require.ErrorContains(t, err, "argument 0")
}

func TestBind_ReturnsHandlerError(t *testing.T) {
	t.Parallel()

	invoke, err := Bind(&chatService{}, Metadata{Method: "Fail", Event: "e"})
	require.NoError(t, err)

	require.EqualError(t, invoke(), "handler failed")
}

func TestBind_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		instance any
		method   string
	}{
		{name: "missing method", instance: &chatService{}, method: "Nope"},
		{name: "unexported method", instance: &chatService{}, method: "private"},
		{name: "nil instance", instance: nil, method: "Connect"},
		{name: "nil pointer", instance: (*chatService)(nil), method: "Connect"},
		{name: "struct value", instance: chatService{}, method: "Connect"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			invoke, err := Bind(tc.instance, Metadata{Method: tc.method, Event: "e"})

			require.Error(t, err)
			require.Nil(t, invoke)
		})
	}
}
