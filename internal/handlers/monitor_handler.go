package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/MaxCaruta/purelove-sub002/internal/httpx"
	"github.com/MaxCaruta/purelove-sub002/internal/monitor"
	"github.com/MaxCaruta/purelove-sub002/internal/source"
	"github.com/MaxCaruta/purelove-sub002/internal/subscriber"
)

// MonitorHandler is the REST surface of the live-monitoring engine. Every
// write goes through the engine's task queue; handlers never touch registry
// state directly.
type MonitorHandler struct {
	engine   *monitor.Engine
	sub      *subscriber.Subscriber
	profiles source.ProfileDirectory
}

func NewMonitorHandler(engine *monitor.Engine, sub *subscriber.Subscriber, profiles source.ProfileDirectory) *MonitorHandler {
	return &MonitorHandler{engine: engine, sub: sub, profiles: profiles}
}

// GetChats returns every monitored user with their conversation list.
func (h *MonitorHandler) GetChats(c *fiber.Ctx) error {
	overview := h.engine.Overview()
	if overview == nil {
		overview = []source.UserChats{}
	}
	return c.JSON(fiber.Map{
		"users": overview,
	})
}

// GetUserChats returns one user's conversations, newest activity first.
func (h *MonitorHandler) GetUserChats(c *fiber.Ctx) error {
	userID, err := httpx.ParamUint(c, "user_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}

	convs := h.engine.ListConversations(userID)
	return c.JSON(fiber.Map{
		"user_id":       userID,
		"conversations": convs,
	})
}

// GetConversation returns one conversation summary.
func (h *MonitorHandler) GetConversation(c *fiber.Ctx) error {
	userID, peerID, err := pairParams(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_pair", "Invalid conversation pair")
	}

	conv, ok := h.engine.GetConversation(userID, peerID)
	if !ok {
		return httpx.NotFound(c, "conversation_not_found", "Conversation not found")
	}
	return c.JSON(conv)
}

// OpenConversation makes the pair the active view. The engine clears unread
// optimistically and persists the read mark in the background.
func (h *MonitorHandler) OpenConversation(c *fiber.Ctx) error {
	userID, peerID, err := pairParams(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_pair", "Invalid conversation pair")
	}

	h.engine.OpenConversation(userID, peerID)
	return c.JSON(h.engine.ActiveView())
}

// CloseConversation clears the active view.
func (h *MonitorHandler) CloseConversation(c *fiber.Ctx) error {
	h.engine.CloseConversation()
	return c.JSON(h.engine.ActiveView())
}

// MarkRead clears unread for a pair without opening it.
func (h *MonitorHandler) MarkRead(c *fiber.Ctx) error {
	userID, peerID, err := pairParams(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_pair", "Invalid conversation pair")
	}

	h.engine.MarkRead(userID, peerID)
	return c.SendStatus(fiber.StatusNoContent)
}

// Refresh is the manual recovery path: reload the registry from the store
// and force a fresh subscription.
func (h *MonitorHandler) Refresh(c *fiber.Ctx) error {
	if err := h.engine.LoadInitial(c.Context(), h.profiles); err != nil {
		log.Printf("Manual refresh failed: %v", err)
		return httpx.Internal(c, "refresh_failed")
	}
	h.sub.Refresh()
	return c.JSON(fiber.Map{
		"state": h.sub.State(),
	})
}

// Status reports the live subscription state.
func (h *MonitorHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"state": h.sub.State(),
	})
}

func pairParams(c *fiber.Ctx) (uint, uint, error) {
	userID, err := httpx.ParamUint(c, "user_id")
	if err != nil {
		return 0, 0, err
	}
	peerID, err := httpx.ParamUint(c, "peer_id")
	if err != nil {
		return 0, 0, err
	}
	return userID, peerID, nil
}
