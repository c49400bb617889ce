// Package mailbox wraps a stateful IMAP session against a single mailbox.
package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/flujo/flujo/internal/common"
	"github.com/flujo/flujo/internal/service"
)

// Config holds the connection settings for one IMAP account.
type Config struct {
	Host     string
	Username string
	Password string
	Mailbox  string
}

// Validate checks that the required connection settings are present.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: imap host", common.ErrMissingConfig)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: imap username", common.ErrMissingConfig)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: imap password", common.ErrMissingConfig)
	}
	return nil
}

// Client is an IMAP session scoped to one pipeline run. It is lazily
// connected, never shared across goroutines, and must be closed on every
// exit path.
type Client struct {
	client *imapclient.Client
	cfg    Config
}

// NewClient creates an unconnected client.
func NewClient(cfg Config) *Client {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &Client{cfg: cfg}
}

// Connect dials the server, authenticates, and selects the mailbox.
// Failures here are fatal to the run and are not retried.
func (c *Client) Connect(_ context.Context) error {
	if c.client != nil {
		return nil
	}

	cl, err := imapclient.DialTLS(c.cfg.Host, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", common.ErrMailboxConnect, c.cfg.Host, err)
	}

	if err := cl.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		_ = cl.Close()
		return fmt.Errorf("%w: %v", common.ErrMailboxAuth, err)
	}

	if _, err := cl.Select(c.cfg.Mailbox, nil).Wait(); err != nil {
		_ = cl.Logout().Wait()
		_ = cl.Close()
		return fmt.Errorf("%w: select %s: %v", common.ErrMailboxConnect, c.cfg.Mailbox, err)
	}

	c.client = cl
	return nil
}

// SearchWindow returns the UIDs of messages whose arrival date falls inside
// [since, before). A zero before leaves the window open-ended.
func (c *Client) SearchWindow(ctx context.Context, since, before time.Time) ([]uint32, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{Since: since}
	if !before.IsZero() {
		criteria.Before = before
	}

	data, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("uid search failed: %w", err)
	}

	uids := data.AllUIDs()
	out := make([]uint32, len(uids))
	for i, uid := range uids {
		out[i] = uint32(uid)
	}
	return out, nil
}

// FetchMessage retrieves one message by UID and parses its MIME structure
// into subject, sender, and text/HTML bodies.
func (c *Client) FetchMessage(ctx context.Context, uid uint32) (*service.MailMessage, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	bodySection := &imap.FetchItemBodySection{}
	fetchOptions := &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	}

	msgs, err := c.client.Fetch(imap.UIDSetNum(imap.UID(uid)), fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch uid %d failed: %w", uid, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("uid %d: %w", uid, common.ErrNotFound)
	}

	buf := msgs[0]
	out := &service.MailMessage{
		UID:         uid,
		ArrivalTime: buf.InternalDate,
	}

	if env := buf.Envelope; env != nil {
		out.Subject = env.Subject
		out.MessageID = env.MessageID
		if len(env.From) > 0 {
			out.SenderName = env.From[0].Name
			out.SenderAddress = env.From[0].Addr()
		}
		if out.ArrivalTime.IsZero() {
			out.ArrivalTime = env.Date
		}
	}

	raw := buf.FindBodySection(bodySection)
	if len(raw) > 0 {
		text, html, err := ParseBody(raw)
		if err != nil {
			return nil, fmt.Errorf("parse body uid %d: %w", uid, err)
		}
		out.TextBody = text
		out.HTMLBody = html
	}

	return out, nil
}

// Close logs out and releases the session. Safe to call on an unconnected
// client and more than once.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	cl := c.client
	c.client = nil

	if err := cl.Logout().Wait(); err != nil {
		_ = cl.Close()
		return fmt.Errorf("logout failed: %w", err)
	}
	return cl.Close()
}
