package network

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageHello        MessageType = "hello"
	MessageKeepAlive    MessageType = "keepAlive"
	MessagePathRequest  MessageType = "pathRequest"
	MessagePathResponse MessageType = "pathResponse"
	MessageBlockUpdate  MessageType = "blockUpdate"
)

type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
}

type Hello struct {
	ServerID string `json:"serverId"`
	Region   struct {
		OriginX int `json:"originX"`
		OriginY int `json:"originY"`
		Size    int `json:"size"`
	} `json:"region"`
	Agents []string `json:"agents"`
}

type KeepAlive struct {
	ServerID string    `json:"serverId"`
	Time     time.Time `json:"time"`
}

type BlockStep struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// PathRequest asks for a route for one entity. Agent names a configured
// preset; Mobility, Width and Height override it when set.
type PathRequest struct {
	RequestID     string      `json:"requestId"`
	EntityID      string      `json:"entityId"`
	Agent         string      `json:"agent"`
	Mobility      string      `json:"mobility,omitempty"`
	X             float64     `json:"x"`
	Y             float64     `json:"y"`
	Z             float64     `json:"z"`
	OnGround      bool        `json:"onGround"`
	InWater       bool        `json:"inWater"`
	Width         float64     `json:"width,omitempty"`
	Height        float64     `json:"height,omitempty"`
	Goals         []BlockStep `json:"goals"`
	MaxPathLength float64     `json:"maxPathLength,omitempty"`
	ReachRange    *int        `json:"reachRange,omitempty"`
	Multiplier    float64     `json:"multiplier,omitempty"`
}

// Path response statuses.
const (
	StatusOK        = "ok"
	StatusPartial   = "partial"
	StatusNoStart   = "no_start"
	StatusThrottled = "throttled"
	StatusError     = "error"
)

type PathResponse struct {
	RequestID        string      `json:"requestId"`
	EntityID         string      `json:"entityId"`
	Status           string      `json:"status"`
	Error            string      `json:"error,omitempty"`
	Reached          bool        `json:"reached"`
	DistanceToTarget int         `json:"distanceToTarget"`
	Route            []BlockStep `json:"route"`
	// Path carries the binary path encoding for clients that follow it.
	Path []byte `json:"path,omitempty"`
}

type BlockUpdate struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Z           int    `json:"z"`
	Material    string `json:"material"`
	Open        bool   `json:"open,omitempty"`
	Waterlogged bool   `json:"waterlogged,omitempty"`
}

func Encode(msg Envelope) ([]byte, error) {
	return json.Marshal(msg)
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
