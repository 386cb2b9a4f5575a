package session

import "github.com/lunarforge/gamesession-backend/internal/entity"

// message is anything that can travel through a session mailbox. Client
// commands carry a reply channel; completion messages are enqueued by the I/O
// goroutines the session itself spawned.
type message interface{}

type makeMoveMsg struct {
	playerID string
	cell     int
	reply    chan commandReply
}

type getStateMsg struct {
	reply chan commandReply
}

type commandReply struct {
	state entity.ClientState
	err   error
}

// snapshotLoadedMsg completes the startup load. found is false when there was
// no prior snapshot or the load failed; either way the session starts fresh.
type snapshotLoadedMsg struct {
	game  entity.Game
	found bool
}

// snapshotSavedMsg completes a fire-and-forget save.
type snapshotSavedMsg struct {
	err error
}
