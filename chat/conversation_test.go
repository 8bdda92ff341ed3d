package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatcher/taskchat/pkg/slotstore"
)

type fakeGateway struct {
	sendResp  *ChatResponse
	sendErr   error
	sendCalls int
	lastReq   ChatRequest

	conversations map[string]*Conversation
	getErr        error
}

func (f *fakeGateway) SendMessage(ctx context.Context, userID int64, req ChatRequest) (*ChatResponse, error) {
	f.sendCalls++
	f.lastReq = req
	return f.sendResp, f.sendErr
}

func (f *fakeGateway) GetConversation(ctx context.Context, userID int64, conversationID string) (*Conversation, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.conversations[conversationID], nil
}

func signedIn(id int64) UserIDSource {
	return func() (int64, bool) { return id, true }
}

func signedOut() UserIDSource {
	return func() (int64, bool) { return 0, false }
}

func newTestStore(t *testing.T, userID UserIDSource, gw *fakeGateway) (*store, slotstore.Store) {
	t.Helper()
	slots := slotstore.NewMemoryStore()
	return NewStore(slots, gw, userID, Config{}).(*store), slots
}

func TestSendBlankIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	st, _ := newTestStore(t, signedIn(5), gw)

	require.NoError(t, st.Send(context.Background(), "   "))
	assert.Equal(t, 0, gw.sendCalls)
	assert.Empty(t, st.Messages())
}

func TestSendWithoutUserSkipsNetwork(t *testing.T) {
	gw := &fakeGateway{}
	st, _ := newTestStore(t, signedOut(), gw)

	err := st.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, 0, gw.sendCalls)
	assert.Equal(t, StatusFailed, st.Status())
}

func TestSendSuccess(t *testing.T) {
	gw := &fakeGateway{
		sendResp: &ChatResponse{
			Success:        true,
			Response:       "done, task created",
			ConversationID: "c1",
			MessageID:      "m1",
			ToolCalls:      []ToolCall{{Name: "create_task", Arguments: `{"title":"x"}`}},
		},
	}
	st, slots := newTestStore(t, signedIn(5), gw)
	ctx := context.Background()

	require.NoError(t, st.Send(ctx, "create a task"))

	msgs := st.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, SenderUser, msgs[0].Sender)
	assert.Equal(t, StatusSent, msgs[0].Status)
	assert.Equal(t, "create a task", msgs[0].Content)
	assert.Equal(t, SenderAssistant, msgs[1].Sender)
	assert.Equal(t, StatusReceived, msgs[1].Status)
	assert.Equal(t, "done, task created", msgs[1].Content)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "create_task", msgs[1].ToolCalls[0].Name)

	// 本地没有会话ID时采纳服务端返回的ID并持久化
	assert.Equal(t, "c1", st.ConversationID())
	stored, err := slots.Get(ctx, ConversationSlotKey)
	require.NoError(t, err)
	assert.Equal(t, "c1", stored)
	assert.Equal(t, StatusReady, st.Status())
}

func TestSendKeepsExistingConversationID(t *testing.T) {
	gw := &fakeGateway{
		sendResp: &ChatResponse{Success: true, Response: "ok", ConversationID: "server-id"},
	}
	st, _ := newTestStore(t, signedIn(5), gw)
	ctx := context.Background()

	local, err := st.StartNew(ctx)
	require.NoError(t, err)

	require.NoError(t, st.Send(ctx, "hi"))
	assert.Equal(t, local, st.ConversationID())
	assert.Equal(t, local, gw.lastReq.ConversationID)
}

func TestSendBackendFailure(t *testing.T) {
	gw := &fakeGateway{
		sendResp: &ChatResponse{
			Success: false,
			Error:   &ChatError{Type: "llm_error", Message: "model overloaded"},
		},
	}
	st, _ := newTestStore(t, signedIn(5), gw)

	require.NoError(t, st.Send(context.Background(), "hi"))

	msgs := st.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, StatusError, msgs[1].Status)
	assert.Equal(t, "model overloaded", msgs[1].Content)
	assert.Equal(t, StatusReady, st.Status())
}

func TestSendBackendFailureWithoutMessage(t *testing.T) {
	gw := &fakeGateway{sendResp: &ChatResponse{Success: false}}
	st, _ := newTestStore(t, signedIn(5), gw)

	require.NoError(t, st.Send(context.Background(), "hi"))

	msgs := st.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, fallbackErrorText, msgs[1].Content)
}

func TestSendTransportError(t *testing.T) {
	gw := &fakeGateway{sendErr: assert.AnError}
	st, _ := newTestStore(t, signedIn(5), gw)

	err := st.Send(context.Background(), "hi")
	require.Error(t, err)

	msgs := st.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, StatusSent, msgs[0].Status, "user message stays in the log")
	assert.Equal(t, StatusError, msgs[1].Status)
	assert.Equal(t, fallbackErrorText, msgs[1].Content)
	assert.Equal(t, StatusFailed, st.Status())
}

func TestInitRestoresPersistedConversation(t *testing.T) {
	gw := &fakeGateway{
		conversations: map[string]*Conversation{
			"c1": {ID: "c1", Messages: []Message{
				{ID: "m1", Content: "hello", Sender: SenderUser, Status: StatusSent},
				{ID: "m2", Content: "hi there", Sender: SenderAssistant, Status: StatusReceived},
			}},
		},
	}
	st, slots := newTestStore(t, signedIn(5), gw)
	ctx := context.Background()
	require.NoError(t, slots.Set(ctx, ConversationSlotKey, "c1"))

	require.NoError(t, st.Init(ctx))
	assert.Equal(t, "c1", st.ConversationID())
	assert.Len(t, st.Messages(), 2)
	assert.Equal(t, StatusReady, st.Status())
}

func TestInitMissingConversationStartsFresh(t *testing.T) {
	gw := &fakeGateway{conversations: map[string]*Conversation{}}
	st, slots := newTestStore(t, signedIn(5), gw)
	ctx := context.Background()
	require.NoError(t, slots.Set(ctx, ConversationSlotKey, "c-missing"))

	require.NoError(t, st.Init(ctx))
	assert.NotEqual(t, "c-missing", st.ConversationID())
	assert.True(t, strings.HasPrefix(st.ConversationID(), "conv_"))
	assert.Empty(t, st.Messages())

	stored, err := slots.Get(ctx, ConversationSlotKey)
	require.NoError(t, err)
	assert.Equal(t, st.ConversationID(), stored)
}

func TestInitWithoutStoredIDStartsFresh(t *testing.T) {
	gw := &fakeGateway{}
	st, _ := newTestStore(t, signedIn(5), gw)

	require.NoError(t, st.Init(context.Background()))
	assert.True(t, strings.HasPrefix(st.ConversationID(), "conv_"))
	assert.Equal(t, StatusReady, st.Status())
}

func TestClearResetsLog(t *testing.T) {
	gw := &fakeGateway{sendResp: &ChatResponse{Success: true, Response: "ok", ConversationID: "c1"}}
	st, slots := newTestStore(t, signedIn(5), gw)
	ctx := context.Background()

	require.NoError(t, st.Send(ctx, "hi"))
	require.Len(t, st.Messages(), 2)
	before := st.ConversationID()

	require.NoError(t, st.Clear(ctx))
	assert.Empty(t, st.Messages())
	assert.NotEqual(t, before, st.ConversationID())

	stored, err := slots.Get(ctx, ConversationSlotKey)
	require.NoError(t, err)
	assert.Equal(t, st.ConversationID(), stored)
}

// blockingGateway parks every SendMessage call until released, so tests can
// observe which sends are in flight at the same time.
type blockingGateway struct {
	entered chan string
	release chan struct{}
}

func newBlockingGateway() *blockingGateway {
	return &blockingGateway{
		entered: make(chan string, 4),
		release: make(chan struct{}),
	}
}

func (g *blockingGateway) SendMessage(ctx context.Context, userID int64, req ChatRequest) (*ChatResponse, error) {
	g.entered <- req.Message
	<-g.release
	return &ChatResponse{Success: true, Response: "reply to " + req.Message, ConversationID: "c1"}, nil
}

func (g *blockingGateway) GetConversation(ctx context.Context, userID int64, conversationID string) (*Conversation, error) {
	return nil, nil
}

func waitEntered(t *testing.T, gw *blockingGateway) string {
	t.Helper()
	select {
	case m := <-gw.entered:
		return m
	case <-time.After(time.Second):
		t.Fatal("send never reached the gateway")
		return ""
	}
}

func TestSerializeSendsOrders(t *testing.T) {
	gw := newBlockingGateway()
	slots := slotstore.NewMemoryStore()
	st := NewStore(slots, gw, signedIn(5), Config{SerializeSends: true}).(*store)
	ctx := context.Background()
	_, err := st.StartNew(ctx)
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() { first <- st.Send(ctx, "first") }()
	assert.Equal(t, "first", waitEntered(t, gw))

	second := make(chan error, 1)
	go func() { second <- st.Send(ctx, "second") }()

	// 串行模式下，第一条在途时第二条不应到达后端
	select {
	case m := <-gw.entered:
		t.Fatalf("second send reached the gateway while first was in flight: %s", m)
	case <-time.After(50 * time.Millisecond):
	}

	gw.release <- struct{}{}
	require.NoError(t, <-first)

	assert.Equal(t, "second", waitEntered(t, gw))
	gw.release <- struct{}{}
	require.NoError(t, <-second)

	msgs := st.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "reply to first", msgs[1].Content)
	assert.Equal(t, "second", msgs[2].Content)
	assert.Equal(t, "reply to second", msgs[3].Content)
}

func TestConcurrentSendsByDefault(t *testing.T) {
	gw := newBlockingGateway()
	slots := slotstore.NewMemoryStore()
	st := NewStore(slots, gw, signedIn(5), Config{}).(*store)
	ctx := context.Background()
	_, err := st.StartNew(ctx)
	require.NoError(t, err)

	done := make(chan error, 2)
	go func() { done <- st.Send(ctx, "a") }()
	go func() { done <- st.Send(ctx, "b") }()

	// 默认不排队：两条消息同时在途
	inFlight := map[string]bool{
		waitEntered(t, gw): true,
		waitEntered(t, gw): true,
	}
	assert.True(t, inFlight["a"])
	assert.True(t, inFlight["b"])

	gw.release <- struct{}{}
	gw.release <- struct{}{}
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	assert.Len(t, st.Messages(), 4)
}

func TestMessageEvents(t *testing.T) {
	gw := &fakeGateway{sendResp: &ChatResponse{Success: true, Response: "ok", ConversationID: "c1"}}
	st, _ := newTestStore(t, signedIn(5), gw)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := st.Subscribe(ctx)
	require.NoError(t, st.Send(ctx, "hi"))

	var got []Message
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			got = append(got, ev.Payload)
		default:
			t.Fatal("expected two message events")
		}
	}
	assert.Equal(t, SenderUser, got[0].Sender)
	assert.Equal(t, SenderAssistant, got[1].Sender)
}
