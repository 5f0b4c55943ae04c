package ws

import (
	"context"
	"errors"
	"sync"

	"kruzhok/internal/models"
)

type wsConnection interface {
	Close() error
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

type coordinator interface {
	Connect(h *Handle)
	Disconnect(h *Handle)
	SendMessage(senderID string, target Target, content string) (models.Message, error)
	MarkSeen(userID, messageID string) error
	RelayTyping(senderID, receiverID string, isTyping bool)
}

// Connection binds one websocket to the coordinator. Inbound events are
// processed strictly in order for this connection; outbound events arrive
// through the handle's queue.
type Connection struct {
	ws         wsConnection
	hub        coordinator
	handle     *Handle
	fromClient chan models.ClientEvent
	errorCh    chan error
}

func NewConnection(hub coordinator, ws wsConnection, handle *Handle) *Connection {
	hub.Connect(handle)
	return &Connection{
		ws:         ws,
		hub:        hub,
		handle:     handle,
		fromClient: make(chan models.ClientEvent),
		errorCh:    make(chan error, 2),
	}
}

func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(c.fromClient)
		close(c.errorCh)
		c.hub.Disconnect(c.handle)
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errorCh <- c.pumpEvents(ctx)
		cancel()
	})

	wg.Go(func() {
		c.errorCh <- c.mainLoop(ctx)
		cancel()
	})

	var err error
	select {
	case err = <-c.errorCh:
	case <-ctx.Done():
	}
	c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (c *Connection) pumpEvents(ctx context.Context) error {
	for {
		var ev models.ClientEvent
		if err := c.ws.ReadJSON(&ev); err != nil {
			return err
		}
		select {
		case c.fromClient <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Connection) mainLoop(ctx context.Context) error {
	for {
		select {
		case ev := <-c.fromClient:
			if err := c.processClientEvent(ev); err != nil {
				return err
			}
		case ev := <-c.handle.Events():
			if err := c.ws.WriteJSON(ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// processClientEvent dispatches one inbound event. Coordinator rejections
// are reported back to this connection only; they never tear it down.
func (c *Connection) processClientEvent(ev models.ClientEvent) error {
	userID := c.handle.UserID()

	switch ev.Type {
	case models.ClientEventTyping:
		c.hub.RelayTyping(userID, ev.ReceiverID, ev.IsTyping)
		return nil
	case models.ClientEventSendMessage:
		target, err := TargetFrom(ev.ReceiverID, ev.GroupID)
		if err != nil {
			return c.writeError(err)
		}
		if _, err := c.hub.SendMessage(userID, target, ev.Content); err != nil {
			return c.writeError(err)
		}
		return nil
	case models.ClientEventMessageSeen:
		if err := c.hub.MarkSeen(userID, ev.MessageID); err != nil {
			return c.writeError(err)
		}
		return nil
	default:
		return c.writeError(models.ErrValidation)
	}
}

func (c *Connection) writeError(err error) error {
	return c.ws.WriteJSON(models.ServerEvent{
		Type:   models.ServerEventError,
		Reason: reason(err),
	})
}
