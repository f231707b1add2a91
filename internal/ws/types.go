package ws

const (
	// client - server
	MsgMove = "move"
	MsgSkip = "skip"
	MsgPing = "ping"

	// server - client
	MsgReady    = "ready"
	MsgAck      = "ack"
	MsgChange   = "change"
	MsgProgress = "progress"
	MsgEnd      = "end"
	MsgPong     = "pong"
	MsgError    = "error"
)
