package core

import (
	"context"
	"testing"
	"time"

	"github.com/roomcast/roomcast-server/internal/notify"
)

func TestHubJoinChatAndDisconnect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub, _ := newTestHub(100)
	go hub.Run(ctx)

	alice := NewClient("a")
	bob := NewClient("b")

	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice", Room: "general"}

	// Alice joined an empty room: history is empty, member list is just her.
	histEv := mustEvent(t, alice.Events, EventMessageHistory)
	if len(histEv.Messages) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(histEv.Messages))
	}
	listEv := mustEvent(t, alice.Events, EventUserList)
	if len(listEv.Users) != 1 || listEv.Users[0] != "alice" {
		t.Fatalf("unexpected member list: %v", listEv.Users)
	}

	bob.Commands <- &Command{Kind: CommandJoin, Username: "bob", Room: "general"}

	// Alice sees bob's join notice and both see a member list of size 2.
	joinEv := mustEvent(t, alice.Events, EventMessage)
	if joinEv.Message.Kind != MessageSystem || joinEv.User != "bob" {
		t.Fatalf("unexpected join notice: %+v", joinEv)
	}
	aliceList := mustEvent(t, alice.Events, EventUserList)
	if len(aliceList.Users) != 2 {
		t.Fatalf("expected 2 members for alice, got %v", aliceList.Users)
	}
	bobList := mustEvent(t, bob.Events, EventUserList)
	if len(bobList.Users) != 2 {
		t.Fatalf("expected 2 members for bob, got %v", bobList.Users)
	}

	// Bob chats: both bob and alice receive a user message, sender included.
	bob.Commands <- &Command{Kind: CommandSendMessage, Text: "hi"}

	for name, c := range map[string]*Client{"alice": alice, "bob": bob} {
		msgEv := mustEvent(t, c.Events, EventMessage)
		if msgEv.Message.Kind != MessageUser || msgEv.Message.Text != "hi" || msgEv.Message.From != "bob" {
			t.Fatalf("unexpected chat event for %s: %+v", name, msgEv)
		}
	}

	// Alice disconnects: bob sees exactly one left notice and a list of 1.
	hub.UnregisterClient(alice)

	leftEv := mustEvent(t, bob.Events, EventMessage)
	if leftEv.Message.Kind != MessageSystem || leftEv.User != "alice" {
		t.Fatalf("unexpected leave notice: %+v", leftEv)
	}
	finalList := mustEvent(t, bob.Events, EventUserList)
	if len(finalList.Users) != 1 || finalList.Users[0] != "bob" {
		t.Fatalf("unexpected final member list: %v", finalList.Users)
	}

	select {
	case <-alice.Done():
	case <-time.After(time.Second):
		t.Fatal("alice was not torn down")
	}

	for _, id := range hub.rooms.Members("general") {
		if id == "a" {
			t.Fatal("disconnected connection still a room member")
		}
	}
}

func TestHubRejoinIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub, _ := newTestHub(100)
	go hub.Run(ctx)

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice", Room: "general"}
	mustEvent(t, alice.Events, EventUserList)
	bob.Commands <- &Command{Kind: CommandJoin, Username: "bob", Room: "general"}
	mustEvent(t, alice.Events, EventMessage) // bob's join notice
	mustEvent(t, bob.Events, EventUserList)  // drain bob's initial snapshot

	// Second join to the same room: snapshot resent, no duplicate notice.
	bob.Commands <- &Command{Kind: CommandJoin, Username: "bob", Room: "general"}
	rejoin := mustEvent(t, bob.Events, EventMessageHistory)
	if len(rejoin.Messages) == 0 {
		t.Fatal("resent snapshot should contain the accumulated history")
	}
	ensureNoEvent(t, alice.Events, EventMessage, 200*time.Millisecond)

	if n := len(hub.rooms.Members("general")); n != 2 {
		t.Fatalf("expected 2 members after re-join, got %d", n)
	}
}

func TestHubChatWithoutRoomProducesError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hub, _ := newTestHub(100)
	go hub.Run(ctx)

	alice := NewClient("a")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandSendMessage, Text: "hi"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room error, got %+v", ev)
	}
	if hub.rooms.Exists("general") {
		t.Fatal("no room should have been created")
	}
}

func TestHubRoomSwitchAnnouncesDeparture(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub, _ := newTestHub(100)
	go hub.Run(ctx)

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice", Room: "general"}
	bob.Commands <- &Command{Kind: CommandJoin, Username: "bob", Room: "general"}
	mustEvent(t, bob.Events, EventUserList)

	// Switching rooms leaves the old one first.
	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice", Room: "random"}

	leftEv := mustEvent(t, bob.Events, EventMessage)
	if leftEv.Message.Kind != MessageSystem || leftEv.User != "alice" {
		t.Fatalf("expected alice's leave notice, got %+v", leftEv)
	}
	mustEvent(t, alice.Events, EventMessageHistory)

	if n := len(hub.rooms.Members("general")); n != 1 {
		t.Fatalf("expected 1 member left in general, got %d", n)
	}
	if n := len(hub.rooms.Members("random")); n != 1 {
		t.Fatalf("expected 1 member in random, got %d", n)
	}
	conn, _ := hub.registry.Lookup("a")
	if conn.Room != "random" {
		t.Fatalf("expected alice in random, got %q", conn.Room)
	}
}

func TestHubIdentityConflictProducesError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hub, _ := newTestHub(100)
	go hub.Run(ctx)

	alice := NewClient("a")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice", Room: "general"}
	mustEvent(t, alice.Events, EventUserList)

	alice.Commands <- &Command{Kind: CommandJoin, Username: "mallory", Room: "general"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeDuplicateConnection {
		t.Fatalf("expected duplicate_connection error, got %+v", ev)
	}
}

func TestHubTypingExcludesOriginator(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub, _ := newTestHub(100)
	go hub.Run(ctx)

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice", Room: "general"}
	bob.Commands <- &Command{Kind: CommandJoin, Username: "bob", Room: "general"}
	mustEvent(t, bob.Events, EventUserList)

	alice.Commands <- &Command{Kind: CommandTyping, Typing: true}

	typingEv := mustEvent(t, bob.Events, EventUserTyping)
	if typingEv.User != "alice" || !typingEv.Typing {
		t.Fatalf("unexpected typing event: %+v", typingEv)
	}
	ensureNoEvent(t, alice.Events, EventUserTyping, 200*time.Millisecond)
}

func TestHubPrivateMessageDelivery(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub, _ := newTestHub(100)
	go hub.Run(ctx)

	alice := NewClient("a")
	bob1 := NewClient("b1")
	bob2 := NewClient("b2")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob1)
	hub.RegisterClient(bob2)

	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice", Room: "general"}
	bob1.Commands <- &Command{Kind: CommandJoin, Username: "bob", Room: "general"}
	bob2.Commands <- &Command{Kind: CommandJoin, Username: "bob", Room: "random"}
	mustEvent(t, bob2.Events, EventUserList)

	alice.Commands <- &Command{Kind: CommandSendPrivate, TargetUser: "bob", Text: "psst"}

	// Both of bob's sessions receive it, and alice gets an echo.
	for name, c := range map[string]*Client{"bob1": bob1, "bob2": bob2, "alice": alice} {
		ev := mustEvent(t, c.Events, EventPrivateMessage)
		if ev.Private.From != "alice" || ev.Private.To != "bob" || ev.Private.Text != "psst" {
			t.Fatalf("unexpected private message for %s: %+v", name, ev)
		}
	}

	// A message body never lands in any room history.
	for _, room := range []string{"general", "random"} {
		for _, m := range hub.rooms.History(room) {
			if m.Text == "psst" {
				t.Fatalf("private message persisted in room %s", room)
			}
		}
	}
}

func TestHubPrivateMessageToOfflineUser(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hub, _ := newTestHub(100)
	go hub.Run(ctx)

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice", Room: "general"}
	bob.Commands <- &Command{Kind: CommandJoin, Username: "bob", Room: "general"}
	mustEvent(t, bob.Events, EventUserList)

	alice.Commands <- &Command{Kind: CommandSendPrivate, TargetUser: "ghost", Text: "anyone?"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeRecipientOffline {
		t.Fatalf("expected recipient_offline error, got %+v", ev)
	}
	ensureNoEvent(t, bob.Events, EventPrivateMessage, 200*time.Millisecond)
}

func TestHubSubscribeAndMarkRead(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub, notifier := newTestHub(100)
	go hub.Run(ctx)

	published := notifier.Publish(notify.Input{
		TargetUserID: "alice",
		Category:     notify.CategoryInfo,
		Title:        "earlier",
	})

	alice := NewClient("a")
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandSubscribe, Username: "alice"}

	subEv := mustEvent(t, alice.Events, EventSubscribed)
	if subEv.User != "alice" {
		t.Fatalf("unexpected subscribed event: %+v", subEv)
	}
	backfillEv := mustEvent(t, alice.Events, EventNotificationHistory)
	if len(backfillEv.Notifications) != 1 || backfillEv.Notifications[0].ID != published.ID {
		t.Fatalf("unexpected backfill: %+v", backfillEv.Notifications)
	}

	// A live publish reaches the subscriber.
	notifier.Publish(notify.Input{TargetUserID: notify.TargetAll, Title: "for everyone"})
	liveEv := mustEvent(t, alice.Events, EventNotification)
	if liveEv.Notification.Title != "for everyone" {
		t.Fatalf("unexpected live notification: %+v", liveEv.Notification)
	}

	alice.Commands <- &Command{Kind: CommandMarkRead, NotificationID: published.ID}
	readEv := mustEvent(t, alice.Events, EventMarkReadResponse)
	if !readEv.MarkRead.Success || readEv.MarkRead.NotificationID != published.ID {
		t.Fatalf("unexpected mark read response: %+v", readEv.MarkRead)
	}

	alice.Commands <- &Command{Kind: CommandMarkRead, NotificationID: "no-such-id"}
	missEv := mustEvent(t, alice.Events, EventMarkReadResponse)
	if missEv.MarkRead.Success {
		t.Fatal("mark read of unknown id should not succeed")
	}
}

func TestHubMarkReadWithoutSubscription(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hub, _ := newTestHub(100)
	go hub.Run(ctx)

	alice := NewClient("a")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandMarkRead, NotificationID: "whatever"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeValidation {
		t.Fatalf("expected validation error, got %+v", ev)
	}
}

func TestHubDisconnectDropsSubscription(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hub, notifier := newTestHub(100)
	go hub.Run(ctx)

	alice := NewClient("a")
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandSubscribe, Username: "alice"}
	mustEvent(t, alice.Events, EventSubscribed)

	hub.UnregisterClient(alice)
	<-alice.Done()

	if n := notifier.ConnectionCount(); n != 0 {
		t.Fatalf("expected 0 subscribed connections after disconnect, got %d", n)
	}
}
