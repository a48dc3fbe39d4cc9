// Package shell holds the interaction loops in front of the answer pipeline:
// a single-shot prompt and a multi-turn chat session.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"admissionsbot/internal/domain"
)

// Assistant replies shown in a session instead of an answer.
const (
	MissingCredentialReply = "Please enter your OpenAI API key in the key field (Tab)."
	errorReplyFormat       = "An error occurred: %v. Please check your API key and try again."
)

// ErrEmptyQuestion is returned when the single-shot prompt reads nothing.
var ErrEmptyQuestion = errors.New("empty question")

// AskOnce prompts for one question on out, reads it from in and prints the answer.
func AskOnce(ctx context.Context, in io.Reader, out io.Writer, answerer domain.Answerer, credential string) error {
	if _, err := fmt.Fprint(out, "Enter your question: "); err != nil {
		return err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read question: %w", err)
	}
	question := strings.TrimSpace(line)
	if question == "" {
		return ErrEmptyQuestion
	}
	return Ask(ctx, out, answerer, question, credential)
}

// Ask answers question and prints the response line.
func Ask(ctx context.Context, out io.Writer, answerer domain.Answerer, question, credential string) error {
	answer, err := answerer.Answer(ctx, question, credential)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Response: %s\n", answer)
	return err
}

// Session is a multi-turn conversation. Only one turn runs at a time; the
// transcript is append-only and lives as long as the session.
type Session struct {
	answerer domain.Answerer

	turn       sync.Mutex
	mu         sync.RWMutex
	credential string
	transcript []domain.Message
}

func NewSession(answerer domain.Answerer, credential string) *Session {
	return &Session{answerer: answerer, credential: credential}
}

// SetCredential replaces the key used for subsequent turns.
func (s *Session) SetCredential(credential string) {
	s.mu.Lock()
	s.credential = strings.TrimSpace(credential)
	s.mu.Unlock()
}

func (s *Session) HasCredential() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential != ""
}

// Submit appends the user message, runs one turn and appends the assistant
// reply. Failures become assistant text; the returned message is the reply.
func (s *Session) Submit(ctx context.Context, text string) domain.Message {
	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.Lock()
	s.transcript = append(s.transcript, domain.Message{Role: domain.RoleUser, Content: text})
	credential := s.credential
	s.mu.Unlock()

	var reply string
	if credential == "" {
		reply = MissingCredentialReply
	} else if answer, err := s.answerer.Answer(ctx, text, credential); err != nil {
		reply = fmt.Sprintf(errorReplyFormat, err)
	} else {
		reply = answer
	}

	msg := domain.Message{Role: domain.RoleAssistant, Content: reply}
	s.mu.Lock()
	s.transcript = append(s.transcript, msg)
	s.mu.Unlock()
	return msg
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}
