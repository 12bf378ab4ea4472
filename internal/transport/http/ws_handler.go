package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"act-academy/internal/app"
	"act-academy/internal/domain"
	"act-academy/internal/logging"
	"github.com/gorilla/websocket"
)

// WSHandler hosts quiz sessions over websockets. A reconnecting client with the same
// quiz and user reattaches to the attempt that is already running.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader

	// runs outlive connections so the countdown continues while a client reconnects
	runCtx   context.Context
	stopRuns context.CancelFunc
	runs     sync.WaitGroup
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		runCtx:   ctx,
		stopRuns: cancel,
	}
}

// Close stops every running countdown and waits for them to exit.
func (h *WSHandler) Close() {
	h.stopRuns()
	h.runs.Wait()
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionID  string `json:"questionId"`
	OptionIndex int    `json:"optionIndex"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// ServeWS upgrades the request and binds the connection to the user's session for quizId.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}
	user := domain.User{ID: userID, Name: displayName}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.HTTP("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, created, err := h.service.Attach(r.Context(), quizID, user)
	if err != nil {
		if session != nil {
			_ = conn.WriteJSON(outboundMessage[any]{Type: "snapshot", Payload: session.Snapshot()})
		}
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: newErrorPayload(err)})
		return
	}
	if created {
		h.runs.Add(1)
		go func() {
			defer h.runs.Done()
			session.Run(h.runCtx)
			h.service.Release(quizID, user)
		}()
	}
	logging.HTTP("ws attached user=%s quiz=%s new=%v", userID, quizID, created)

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var commands sync.WaitGroup

	// the writer goroutine is the only one touching conn for writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logging.HTTP("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					if result, done := session.Result(); done {
						select {
						case send <- outboundMessage[any]{Type: "result", Payload: result}:
						case <-closeSignals:
						}
					}
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}
	fail := func(err error) {
		reply(outboundMessage[any]{Type: "error", Payload: newErrorPayload(err)})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}})
				continue
			}
			if payload.QuestionID != "" {
				err = session.SelectFor(payload.QuestionID, payload.OptionIndex)
			} else {
				err = session.Select(payload.OptionIndex)
			}
			if err != nil {
				fail(err)
			}
		case "next":
			session.Next()
		case "prev":
			session.Prev()
		case "goto":
			var payload gotoPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid goto payload"}})
				continue
			}
			if err := session.GoTo(payload.Index); err != nil {
				fail(err)
			}
		case "submit":
			// submissions run off the read loop so a second submit meets the in-flight guard
			commands.Add(1)
			go func() {
				defer commands.Done()
				if _, err := session.Submit(h.runCtx); err != nil {
					fail(err)
				}
			}()
		case "leave":
			if !session.RequestLeave() {
				reply(outboundMessage[any]{Type: "snapshot", Payload: session.Snapshot()})
			}
		case "stay", "abandon":
			if err := session.ResolveLeave(inbound.Type == "stay"); err != nil {
				fail(err)
			}
		default:
			reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	commands.Wait()
	<-updatesDone
	close(send)
	<-writerDone
	h.service.Release(quizID, user)
}

func newErrorPayload(err error) errorPayload {
	return errorPayload{Message: err.Error(), Kind: errorKind(err)}
}

// errorKind names the error class so a page can pick the right recovery.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthExpired):
		return "auth_expired"
	case errors.Is(err, domain.ErrMaintenance):
		return "maintenance"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrSubmitInFlight):
		return "submit_in_flight"
	case errors.Is(err, domain.ErrSessionClosed), errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_state"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	}
	return ""
}
