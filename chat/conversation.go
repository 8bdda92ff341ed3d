package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hatcher/taskchat/pkg/logs"
	"github.com/hatcher/taskchat/pkg/pubsub"
	"github.com/hatcher/taskchat/pkg/slotstore"
	"github.com/hatcher/taskchat/pkg/util"
)

// ConversationSlotKey 当前会话ID槽位的固定键名
const ConversationSlotKey = "currentConversationId"

// fallbackErrorText is shown as the assistant reply when the backend gives
// no usable error message.
const fallbackErrorText = "Sorry, I encountered an error processing your request."

// UserIDSource resolves the numeric user id of the signed-in subject.
// ok is false when nobody is signed in or the subject is not numeric.
type UserIDSource func() (int64, bool)

type Config struct {
	// SerializeSends holds concurrent Send calls in order behind a mutex.
	// Off by default: concurrent sends may interleave replies.
	SerializeSends bool `json:"serializeSends" yaml:"serialize-sends" mapstructure:"serialize-sends"`
}

// Store owns the active conversation: its id, its append-only message log
// and its lifecycle state.
type Store interface {
	pubsub.Subscriber[Message]
	// Init restores the persisted conversation, or starts a fresh one when
	// nothing usable is stored.
	Init(ctx context.Context) error
	// StartNew abandons the current conversation and mints a fresh id.
	// The backend is not told; server-side history is simply left behind.
	StartNew(ctx context.Context) (string, error)
	Send(ctx context.Context, content string) error
	Clear(ctx context.Context) error
	ConversationID() string
	Messages() []Message
	Status() Status
	LastError() string
	Shutdown()
}

type store struct {
	*pubsub.Broker[Message]
	slots   slotstore.Store
	gateway Gateway
	userID  UserIDSource
	cfg     Config

	mu             sync.Mutex
	conversationID string
	messages       []Message
	status         Status
	lastErr        string

	sendMu sync.Mutex
	now    func() time.Time
}

func NewStore(slots slotstore.Store, gateway Gateway, userID UserIDSource, cfg Config) Store {
	return &store{
		Broker:  pubsub.NewBroker[Message](),
		slots:   slots,
		gateway: gateway,
		userID:  userID,
		cfg:     cfg,
		status:  StatusIdle,
		now:     time.Now,
	}
}

func (s *store) Init(ctx context.Context) error {
	s.setStatus(StatusLoading)

	conversationID, err := s.slots.Get(ctx, ConversationSlotKey)
	if err != nil {
		s.fail(err.Error())
		return err
	}
	if conversationID == "" {
		_, err := s.StartNew(ctx)
		return err
	}

	userID, ok := s.userID()
	if !ok {
		// 没有登录主体就无法拉取历史，直接开新会话
		_, err := s.StartNew(ctx)
		return err
	}

	conv, err := s.gateway.GetConversation(ctx, userID, conversationID)
	if err != nil {
		s.fail(err.Error())
		return err
	}
	if conv == nil {
		logs.Infof("stored conversation %s no longer exists, starting fresh", conversationID)
		_, err := s.StartNew(ctx)
		return err
	}

	s.mu.Lock()
	s.conversationID = conversationID
	s.messages = append([]Message(nil), conv.Messages...)
	s.status = StatusReady
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

func (s *store) StartNew(ctx context.Context) (string, error) {
	conversationID := mintConversationID(s.now())
	if err := s.slots.Set(ctx, ConversationSlotKey, conversationID); err != nil {
		s.fail(err.Error())
		return "", err
	}
	s.mu.Lock()
	s.conversationID = conversationID
	s.messages = nil
	s.status = StatusReady
	s.lastErr = ""
	s.mu.Unlock()
	return conversationID, nil
}

// Send posts content to the assistant. The user message is appended to the
// log before the network call; the reply, or an error placeholder, follows.
func (s *store) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	userID, ok := s.userID()
	if !ok {
		s.fail("no signed-in user")
		return fmt.Errorf("cannot send message: no signed-in user")
	}

	if s.cfg.SerializeSends {
		s.sendMu.Lock()
		defer s.sendMu.Unlock()
	}

	s.mu.Lock()
	conversationID := s.conversationID
	s.appendLocked(Message{
		ID:        mintMessageID(s.now()),
		Content:   content,
		Sender:    SenderUser,
		Timestamp: s.now(),
		Status:    StatusSent,
	})
	s.status = StatusLoading
	s.mu.Unlock()

	resp, err := s.gateway.SendMessage(ctx, userID, ChatRequest{
		Message:        content,
		ConversationID: conversationID,
	})
	if err != nil {
		s.mu.Lock()
		s.appendLocked(Message{
			ID:        mintMessageID(s.now()),
			Content:   fallbackErrorText,
			Sender:    SenderAssistant,
			Timestamp: s.now(),
			Status:    StatusError,
		})
		s.status = StatusFailed
		s.lastErr = err.Error()
		s.mu.Unlock()
		return err
	}

	if !resp.Success {
		text := fallbackErrorText
		if resp.Error != nil {
			logs.Warnf("assistant reply failed: %s", util.ToJsonIgnoreError(resp.Error))
			if resp.Error.Message != "" {
				text = resp.Error.Message
			}
		}
		s.mu.Lock()
		s.appendLocked(Message{
			ID:        mintMessageID(s.now()),
			Content:   text,
			Sender:    SenderAssistant,
			Timestamp: s.now(),
			Status:    StatusError,
		})
		s.status = StatusReady
		s.mu.Unlock()
		return nil
	}

	reply := Message{
		ID:        resp.MessageID,
		Content:   resp.Response,
		Sender:    SenderAssistant,
		Timestamp: s.now(),
		Status:    StatusReceived,
		ToolCalls: resp.ToolCalls,
	}
	if reply.ID == "" {
		reply.ID = mintMessageID(s.now())
	}

	s.mu.Lock()
	adopt := s.conversationID == "" && resp.ConversationID != ""
	if adopt {
		s.conversationID = resp.ConversationID
	}
	s.appendLocked(reply)
	s.status = StatusReady
	s.lastErr = ""
	s.mu.Unlock()

	if adopt {
		if err := s.slots.Set(ctx, ConversationSlotKey, resp.ConversationID); err != nil {
			logs.Warnf("failed to persist conversation id %s: %v", resp.ConversationID, err)
		}
	}
	return nil
}

func (s *store) Clear(ctx context.Context) error {
	_, err := s.StartNew(ctx)
	return err
}

func (s *store) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

func (s *store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *store) Shutdown() {
	s.Broker.Shutdown()
}

// appendLocked appends a message to the log and publishes it.
// Caller must hold s.mu. The log is append-only; only StartNew resets it.
func (s *store) appendLocked(msg Message) {
	s.messages = append(s.messages, msg)
	s.Publish(pubsub.CreatedEvent, msg)
}

func (s *store) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *store) fail(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
	s.lastErr = reason
}

// mintConversationID creates a client-side conversation id. Uniqueness is
// best-effort: millisecond timestamp plus a random suffix.
func mintConversationID(now time.Time) string {
	return fmt.Sprintf("conv_%d_%s", now.UnixMilli(), util.RandomSuffix(9))
}

func mintMessageID(now time.Time) string {
	return fmt.Sprintf("msg_%d_%s", now.UnixMilli(), util.RandomSuffix(9))
}
