// Package jitsi generates credential-free fallback meeting rooms. Jitsi
// rooms exist implicitly: any URL under the public base is a joinable room,
// so generation is pure string work with no network calls.
package jitsi

import (
	"fmt"
	"strings"
	"time"

	"github.com/lucsky/cuid"
)

// DefaultBaseURL is the public Jitsi Meet instance used when no custom
// deployment is configured.
const DefaultBaseURL = "https://meet.jit.si"

// Room is a generated fallback meeting room.
type Room struct {
	// JoinURL is the full URL participants open to join
	JoinURL string
	// RoomID is the room name component of the URL
	RoomID string
}

// RoomGenerator produces unique room names under a fixed base URL.
type RoomGenerator struct {
	baseURL string
	now     func() time.Time
}

// NewRoomGenerator creates a generator for the given base URL. An empty
// base URL selects the public instance.
func NewRoomGenerator(baseURL string) *RoomGenerator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RoomGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Generate returns a new room. The room name combines a timestamp prefix
// with a collision-resistant cuid suffix, so concurrent generations and
// clock skew across instances cannot collide. Never fails and performs
// no I/O.
func (g *RoomGenerator) Generate() Room {
	roomID := fmt.Sprintf("interview-%d-%s", g.now().UnixMilli(), cuid.New())
	return Room{
		JoinURL: g.baseURL + "/" + roomID,
		RoomID:  roomID,
	}
}
