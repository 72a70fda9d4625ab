// Package mailotp retrieves sign-in verification codes from an IMAP mailbox.
//
// The portal emails a 6-digit code when its passkey fast path is unavailable.
// Each retrieval opens a short-lived IMAP connection, polls for unseen
// messages matching the configured filters, and extracts the code from the
// first match.
package mailotp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/clinicvoice/healthie-agent/pkg/logging"
)

// ErrTimeout is returned when no matching verification email arrives within
// the caller's bound.
var ErrTimeout = errors.New("mailotp: verification code email not received")

const defaultPollInterval = 500 * time.Millisecond

// Retriever polls a single mailbox for verification codes.
type Retriever struct {
	host         string // hostname:port, TLS
	account      string
	password     string
	pollInterval time.Duration
	logger       *logging.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithPollInterval overrides how often the inbox is re-searched.
func WithPollInterval(interval time.Duration) Option {
	return func(r *Retriever) {
		if interval > 0 {
			r.pollInterval = interval
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// NewRetriever creates a retriever for the given mailbox.
func NewRetriever(host, account, password string, opts ...Option) *Retriever {
	r := &Retriever{
		host:         host,
		account:      account,
		password:     password,
		pollInterval: defaultPollInterval,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOTP polls the inbox until an unseen message matching the filters yields
// a 6-digit code, or the timeout expires. Empty filters are ignored. The
// connection is opened and closed within this call; it shares nothing with
// the browser session.
func (r *Retriever) GetOTP(ctx context.Context, timeout time.Duration, senderFilter, subjectFilter string) (string, error) {
	c, err := client.DialTLS(r.host, nil)
	if err != nil {
		return "", fmt.Errorf("mailotp: dial %s: %w", r.host, err)
	}
	defer c.Logout()

	if err := c.Login(r.account, r.password); err != nil {
		return "", fmt.Errorf("mailotp: login as %s: %w", r.account, err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		return "", fmt.Errorf("mailotp: select inbox: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		ids, err := c.Search(searchCriteria(senderFilter, subjectFilter))
		if err != nil {
			r.logger.Warn("inbox search failed", "error", err)
		} else if len(ids) > 0 {
			// Newest matching message wins.
			code, err := r.codeFromMessage(c, ids[len(ids)-1])
			if err != nil {
				r.logger.Warn("could not read verification email", "error", err)
			} else if code != "" {
				return code, nil
			}
		}

		if time.Now().After(deadline) {
			return "", ErrTimeout
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("mailotp: %w", ctx.Err())
		case <-time.After(r.pollInterval):
		}
	}
}

// searchCriteria builds the UNSEEN + header-filter search for one poll.
func searchCriteria(senderFilter, subjectFilter string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if senderFilter != "" {
		criteria.Header.Add("From", senderFilter)
	}
	if subjectFilter != "" {
		criteria.Header.Add("Subject", subjectFilter)
	}
	return criteria
}

func (r *Retriever) codeFromMessage(c *client.Client, seqNum uint32) (string, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNum)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, 1)
	if err := c.Fetch(seqSet, []imap.FetchItem{section.FetchItem()}, messages); err != nil {
		return "", fmt.Errorf("fetch message %d: %w", seqNum, err)
	}

	msg := <-messages
	if msg == nil {
		return "", fmt.Errorf("message %d not returned", seqNum)
	}
	body := msg.GetBody(section)
	if body == nil {
		return "", fmt.Errorf("message %d has no body", seqNum)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read message %d: %w", seqNum, err)
	}

	code, _ := ExtractCode(raw)
	return code, nil
}
