package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/flujo/flujo/internal/service"
)

// mockMailbox is an in-memory service.Mailbox for orchestrator tests.
type mockMailbox struct {
	connectErr  error
	messages    map[uint32]*service.MailMessage
	connects    int
	closes      int
	fetches     int
	searchCalls int
}

func newMockMailbox(msgs ...*service.MailMessage) *mockMailbox {
	m := &mockMailbox{messages: make(map[uint32]*service.MailMessage)}
	for _, msg := range msgs {
		m.messages[msg.UID] = msg
	}
	return m
}

func (m *mockMailbox) Connect(_ context.Context) error {
	m.connects++
	return m.connectErr
}

func (m *mockMailbox) SearchWindow(_ context.Context, since, before time.Time) ([]uint32, error) {
	m.searchCalls++
	var uids []uint32
	for uid, msg := range m.messages {
		if msg.ArrivalTime.Before(since) {
			continue
		}
		if !before.IsZero() && !msg.ArrivalTime.Before(before) {
			continue
		}
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

func (m *mockMailbox) FetchMessage(_ context.Context, uid uint32) (*service.MailMessage, error) {
	m.fetches++
	msg, ok := m.messages[uid]
	if !ok {
		return nil, fmt.Errorf("uid %d not in mailbox", uid)
	}
	return msg, nil
}

func (m *mockMailbox) Close() error {
	m.closes++
	return nil
}

func alertMessage(uid uint32, arrival time.Time, merchant, amount string) *service.MailMessage {
	return &service.MailMessage{
		UID:           uid,
		Subject:       "Compra aprobada en " + merchant + " por ARS " + amount,
		SenderName:    "Alertas Banco",
		SenderAddress: "alertas@banco.example",
		ArrivalTime:   arrival,
		TextBody:      "Compra aprobada en " + merchant + " por ARS " + amount + " con tarjeta terminada en 1234",
	}
}
