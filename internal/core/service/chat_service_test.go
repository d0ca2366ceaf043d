package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
	"github.com/Raniaaloun/chat-app/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	byID map[string]*domain.Account
}

func newStubAccountRepo(accounts ...*domain.Account) *stubAccountRepo {
	r := &stubAccountRepo{byID: make(map[string]*domain.Account)}
	for _, a := range accounts {
		r.byID[a.ID] = a
	}
	return r
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range r.byID {
		if a.Email == email {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	clone := *a
	clone.ID = fmt.Sprintf("acc_%d", len(r.byID)+1)
	r.byID[clone.ID] = &clone
	return &clone, nil
}

func (r *stubAccountRepo) FindByRole(_ context.Context, role domain.Role) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, a := range r.byID {
		if a.Role == role {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) ListOthers(_ context.Context, excludeID string) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, a := range r.byID {
		if a.ID != excludeID {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

type stubMessageRepo struct {
	byID       map[string]*domain.Message
	order      []string
	nextID     int
	createErr  error // if set, Create returns this error
	deliverErr error // if set, MarkDelivered returns this error
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{byID: make(map[string]*domain.Message)}
}

func (r *stubMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	msg.ID = fmt.Sprintf("msg_%d", r.nextID)
	clone := *msg
	r.byID[msg.ID] = &clone
	r.order = append(r.order, msg.ID)
	return nil
}

func (r *stubMessageRepo) FindByID(_ context.Context, id string) (*domain.Message, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *stubMessageRepo) FindConversation(_ context.Context, userA, userB string) ([]*domain.Message, error) {
	var out []*domain.Message
	for _, id := range r.order {
		m := r.byID[id]
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubMessageRepo) MarkDelivered(_ context.Context, id string) error {
	if r.deliverErr != nil {
		return r.deliverErr
	}
	m, ok := r.byID[id]
	if !ok {
		return domain.ErrMessageNotFound
	}
	m.Delivered = true
	return nil
}

func (r *stubMessageRepo) BulkMarkRead(_ context.Context, senderID, receiverID string, readAt time.Time) ([]string, error) {
	var changed []string
	for _, id := range r.order {
		m := r.byID[id]
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.Read {
			m.Read = true
			m.Delivered = true
			at := readAt
			m.ReadAt = &at
			changed = append(changed, id)
		}
	}
	return changed, nil
}

func (r *stubMessageRepo) LastMessageTimes(_ context.Context, userID string) (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	for _, m := range r.byID {
		other := ""
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		if m.CreatedAt.After(out[other]) {
			out[other] = m.CreatedAt
		}
	}
	return out, nil
}

// stubNotifier records published events and simulates presence.
type stubNotifier struct {
	online    map[string]bool
	published []publishedEvent
}

type publishedEvent struct {
	accountID string
	event     ports.Event
}

func newStubNotifier(onlineIDs ...string) *stubNotifier {
	n := &stubNotifier{online: make(map[string]bool)}
	for _, id := range onlineIDs {
		n.online[id] = true
	}
	return n
}

func (n *stubNotifier) IsOnline(accountID string) bool { return n.online[accountID] }

func (n *stubNotifier) Publish(accountID string, event ports.Event) {
	n.published = append(n.published, publishedEvent{accountID: accountID, event: event})
}

func (n *stubNotifier) eventsFor(accountID string) []ports.Event {
	var out []ports.Event
	for _, p := range n.published {
		if p.accountID == accountID {
			out = append(out, p.event)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var (
	montaser = &domain.Account{ID: "u_montaser", Username: "montaser", Role: domain.RolePrivileged}
	alice    = &domain.Account{ID: "u_alice", Username: "alice", Role: domain.RoleNormal}
	bob      = &domain.Account{ID: "u_bob", Username: "bob", Role: domain.RoleNormal}
)

func sendInput(sender *domain.Account, receiverID, content string) ports.SendMessageInput {
	return ports.SendMessageInput{
		SenderID:   sender.ID,
		SenderRole: sender.Role,
		ReceiverID: receiverID,
		Kind:       domain.KindText,
		Content:    content,
	}
}

// ---------------------------------------------------------------------------
// SendMessage tests
// ---------------------------------------------------------------------------

func TestChatService_Send_ReceiverOffline(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	messages := newStubMessageRepo()
	notifier := newStubNotifier() // nobody online
	svc := NewChatService(accounts, messages, notifier, discardLogger)

	msg, err := svc.SendMessage(context.Background(), sendInput(alice, montaser.ID, "hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Delivered {
		t.Error("offline receiver must leave delivered=false")
	}
	if msg.Read {
		t.Error("new message must not be read")
	}
	stored := messages.byID[msg.ID]
	if stored == nil {
		t.Fatal("message must be persisted")
	}
	if stored.Delivered {
		t.Error("stored record must have delivered=false")
	}
	if len(notifier.published) != 0 {
		t.Errorf("offline receiver must get no events, got %d", len(notifier.published))
	}
}

func TestChatService_Send_ReceiverOnline(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	messages := newStubMessageRepo()
	notifier := newStubNotifier(montaser.ID)
	svc := NewChatService(accounts, messages, notifier, discardLogger)

	msg, err := svc.SendMessage(context.Background(), sendInput(alice, montaser.ID, "hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !msg.Delivered {
		t.Error("online receiver must flip delivered=true")
	}
	if !messages.byID[msg.ID].Delivered {
		t.Error("delivered flag must be durable, not just in-memory")
	}

	events := notifier.eventsFor(montaser.ID)
	if len(events) != 1 {
		t.Fatalf("expected 1 event for receiver, got %d", len(events))
	}
	received, ok := events[0].(ports.MessageReceivedEvent)
	if !ok {
		t.Fatalf("expected MessageReceivedEvent, got %T", events[0])
	}
	if received.Message.ID != msg.ID {
		t.Errorf("event carries wrong message: want %q, got %q", msg.ID, received.Message.ID)
	}
	if !received.Message.Delivered {
		t.Error("event payload must reflect the durable delivered=true state")
	}
}

func TestChatService_Send_NormalToNormalRejected(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice, bob)
	messages := newStubMessageRepo()
	notifier := newStubNotifier(bob.ID)
	svc := NewChatService(accounts, messages, notifier, discardLogger)

	_, err := svc.SendMessage(context.Background(), sendInput(alice, bob.ID, "psst"))
	if !errors.Is(err, domain.ErrForbiddenParty) {
		t.Fatalf("expected ErrForbiddenParty, got %v", err)
	}

	// A rejected send must leave no trace anywhere.
	if len(messages.byID) != 0 {
		t.Errorf("rejected send must persist nothing, got %d records", len(messages.byID))
	}
	if len(notifier.published) != 0 {
		t.Errorf("rejected send must emit nothing, got %d events", len(notifier.published))
	}
}

func TestChatService_Send_PrivilegedToNormalAllowed(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	messages := newStubMessageRepo()
	notifier := newStubNotifier()
	svc := NewChatService(accounts, messages, notifier, discardLogger)

	if _, err := svc.SendMessage(context.Background(), sendInput(montaser, alice.ID, "hi alice")); err != nil {
		t.Fatalf("privileged sender must reach any account, got %v", err)
	}
}

func TestChatService_Send_ReceiverNotFound(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	messages := newStubMessageRepo()
	svc := NewChatService(accounts, messages, newStubNotifier(), discardLogger)

	_, err := svc.SendMessage(context.Background(), sendInput(alice, "u_ghost", "anyone?"))
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if len(messages.byID) != 0 {
		t.Error("failed lookup must persist nothing")
	}
}

func TestChatService_Send_InvalidKind(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	svc := NewChatService(accounts, newStubMessageRepo(), newStubNotifier(), discardLogger)

	input := sendInput(alice, montaser.ID, "x")
	input.Kind = "sticker"

	_, err := svc.SendMessage(context.Background(), input)
	if !errors.Is(err, domain.ErrInvalidMessageKind) {
		t.Fatalf("expected ErrInvalidMessageKind, got %v", err)
	}
}

func TestChatService_Send_PersistenceError(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	messages := newStubMessageRepo()
	messages.createErr = errors.New("db unavailable")
	notifier := newStubNotifier(montaser.ID)
	svc := NewChatService(accounts, messages, notifier, discardLogger)

	_, err := svc.SendMessage(context.Background(), sendInput(alice, montaser.ID, "hello"))
	if err == nil {
		t.Fatal("expected error when persistence fails, got nil")
	}
	if len(notifier.published) != 0 {
		t.Error("failed send must emit nothing to the receiver")
	}
}

func TestChatService_Send_DeliverUpdateFails_NotifiesUndelivered(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	messages := newStubMessageRepo()
	messages.deliverErr = errors.New("write timeout")
	notifier := newStubNotifier(montaser.ID)
	svc := NewChatService(accounts, messages, notifier, discardLogger)

	msg, err := svc.SendMessage(context.Background(), sendInput(alice, montaser.ID, "hello"))
	if err != nil {
		t.Fatalf("send must survive a failed delivered update, got %v", err)
	}
	if msg.Delivered {
		t.Error("returned message must reflect the durable delivered=false state")
	}

	events := notifier.eventsFor(montaser.ID)
	if len(events) != 1 {
		t.Fatalf("receiver must still be notified, got %d events", len(events))
	}
	if received := events[0].(ports.MessageReceivedEvent); received.Message.Delivered {
		t.Error("event payload must not advertise a delivered state that never landed")
	}
}

// ---------------------------------------------------------------------------
// MarkConversationRead tests
// ---------------------------------------------------------------------------

func seedUnread(t *testing.T, svc ports.ChatService, sender *domain.Account, receiverID string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		msg, err := svc.SendMessage(context.Background(), sendInput(sender, receiverID, fmt.Sprintf("msg %d", i)))
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids = append(ids, msg.ID)
	}
	return ids
}

func TestChatService_MarkRead_ThreeUnread_SingleEvent(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	messages := newStubMessageRepo()
	notifier := newStubNotifier(alice.ID)
	svc := NewChatService(accounts, messages, notifier, discardLogger)

	sent := seedUnread(t, svc, alice, montaser.ID, 3)
	notifier.published = nil // only observe the read-receipt traffic

	receipt, err := svc.MarkConversationRead(context.Background(), montaser.ID, alice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(receipt.MessageIDs) != 3 {
		t.Fatalf("expected 3 changed ids, got %d", len(receipt.MessageIDs))
	}
	got := append([]string(nil), receipt.MessageIDs...)
	want := append([]string(nil), sent...)
	sort.Strings(got)
	sort.Strings(want)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("changed ids mismatch: want %v, got %v", want, got)
		}
	}

	events := notifier.eventsFor(alice.ID)
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 messagesRead event for the sender, got %d", len(events))
	}
	read, ok := events[0].(ports.MessagesReadEvent)
	if !ok {
		t.Fatalf("expected MessagesReadEvent, got %T", events[0])
	}
	if len(read.MessageIDs) != 3 {
		t.Errorf("event must carry all 3 ids, got %d", len(read.MessageIDs))
	}
	if read.ReaderID != montaser.ID {
		t.Errorf("event reader: want %q, got %q", montaser.ID, read.ReaderID)
	}
}

func TestChatService_MarkRead_ForcesDelivered(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	messages := newStubMessageRepo()
	svc := NewChatService(accounts, messages, newStubNotifier(), discardLogger)

	// Receiver offline at send time, so the record starts delivered=false.
	sent := seedUnread(t, svc, alice, montaser.ID, 1)

	if _, err := svc.MarkConversationRead(context.Background(), montaser.ID, alice.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := messages.byID[sent[0]]
	if !stored.Read {
		t.Error("message must be read")
	}
	if !stored.Delivered {
		t.Error("read must force delivered even when the delivery step never ran")
	}
	if stored.ReadAt == nil {
		t.Error("read_at must be set")
	}
}

func TestChatService_MarkRead_Idempotent(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	messages := newStubMessageRepo()
	notifier := newStubNotifier(alice.ID)
	svc := NewChatService(accounts, messages, notifier, discardLogger)

	seedUnread(t, svc, alice, montaser.ID, 2)
	notifier.published = nil

	first, err := svc.MarkConversationRead(context.Background(), montaser.ID, alice.ID)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if len(first.MessageIDs) != 2 {
		t.Fatalf("first call must change 2 records, got %d", len(first.MessageIDs))
	}

	second, err := svc.MarkConversationRead(context.Background(), montaser.ID, alice.ID)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(second.MessageIDs) != 0 {
		t.Errorf("second call must change nothing, got %d", len(second.MessageIDs))
	}

	// Only the first call may have notified.
	if events := notifier.eventsFor(alice.ID); len(events) != 1 {
		t.Errorf("expected 1 messagesRead event total, got %d", len(events))
	}
}

func TestChatService_MarkRead_NothingUnread_NoEvent(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	notifier := newStubNotifier(alice.ID)
	svc := NewChatService(accounts, newStubMessageRepo(), notifier, discardLogger)

	receipt, err := svc.MarkConversationRead(context.Background(), montaser.ID, alice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(receipt.MessageIDs) != 0 {
		t.Errorf("expected no changes, got %d", len(receipt.MessageIDs))
	}
	if len(notifier.published) != 0 {
		t.Errorf("no-op mark-read must not notify, got %d events", len(notifier.published))
	}
}

// ---------------------------------------------------------------------------
// GetConversation tests
// ---------------------------------------------------------------------------

func TestChatService_History_OrderedAscending(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	messages := newStubMessageRepo()
	svc := NewChatService(accounts, messages, newStubNotifier(), discardLogger)

	seedUnread(t, svc, alice, montaser.ID, 3)

	history, err := svc.GetConversation(context.Background(), ports.HistoryInput{
		UserID:       alice.ID,
		UserRole:     alice.Role,
		OtherPartyID: montaser.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].CreatedAt.Before(history[i-1].CreatedAt) {
			t.Fatal("history must be ascending by creation time")
		}
	}
}

func TestChatService_History_NormalPairForbidden(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice, bob)
	svc := NewChatService(accounts, newStubMessageRepo(), newStubNotifier(), discardLogger)

	_, err := svc.GetConversation(context.Background(), ports.HistoryInput{
		UserID:       alice.ID,
		UserRole:     alice.Role,
		OtherPartyID: bob.ID,
	})
	if !errors.Is(err, domain.ErrForbiddenParty) {
		t.Fatalf("expected ErrForbiddenParty, got %v", err)
	}
}

func TestChatService_History_UnknownOtherParty(t *testing.T) {
	accounts := newStubAccountRepo(montaser, alice)
	svc := NewChatService(accounts, newStubMessageRepo(), newStubNotifier(), discardLogger)

	_, err := svc.GetConversation(context.Background(), ports.HistoryInput{
		UserID:       alice.ID,
		UserRole:     alice.Role,
		OtherPartyID: "u_ghost",
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
