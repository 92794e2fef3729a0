// Package canvas implements finger-painting on a virtual canvas. The index
// fingertip of one hand acts as the brush; the current gesture selects the
// tool. An extended index finger draws; a fist erases; shaking an open hand
// clears the canvas. Output is a stream of drawing commands in normalized
// [0, 1] coordinates that clients scale to any resolution.
package canvas

import (
	"math"
	"time"

	"github.com/ayusman/mudra/internal/landmark"
)

// Command is one drawing instruction for clients. Type is "line", "erase",
// "clear" or "color"; the populated fields depend on the type.
type Command struct {
	Type   string  `json:"type"`
	X1     float64 `json:"x1,omitempty"`
	Y1     float64 `json:"y1,omitempty"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Color  string  `json:"color,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Radius float64 `json:"radius,omitempty"`
}

// Canvas defaults.
const (
	DefaultLineWidth   = 3.0
	DefaultEraseRadius = 25.0
	DefaultSmoothing   = 3
	DefaultMaxHistory  = 10000
)

// Shake-to-clear tuning. An open hand must reverse horizontal direction
// several times within a short span; clears are rate limited.
const (
	shakeWindow       = 15
	shakeMinSamples   = 8
	shakeMinReversals = 4
	shakeMaxSpan      = 1500 * time.Millisecond
	shakeCooldown     = 2 * time.Second
)

// moveEpsilon suppresses jitter dots: the fingertip must travel at least
// this far before a new line segment is emitted.
const moveEpsilon = 0.003

// gestureColors maps drawing gestures to their brush color.
var gestureColors = map[string]string{
	"pointing":  "#ffffff",
	"peace":     "#22c55e",
	"rock_on":   "#ef4444",
	"ok_sign":   "#3b82f6",
	"thumbs_up": "#eab308",
}

type canvasPoint struct {
	x, y float64
}

type shakeSample struct {
	x  float64
	at time.Time
}

// Canvas tracks the fingertip and turns gestures into drawing commands.
// It keeps a command history so late-joining clients can be caught up.
type Canvas struct {
	lineWidth   float64
	eraseRadius float64
	smoothing   int
	maxHistory  int

	history   []Command
	color     string
	lastPoint canvasPoint
	havePoint bool
	drawing   bool
	buffer    []canvasPoint

	shakePositions []shakeSample
	shakeQuietTill time.Time
}

// New creates a canvas with the default brush parameters.
func New() *Canvas {
	return NewWithParams(DefaultLineWidth, DefaultEraseRadius, DefaultSmoothing)
}

// NewWithParams creates a canvas with a custom line width, eraser radius and
// fingertip smoothing window.
func NewWithParams(lineWidth, eraseRadius float64, smoothing int) *Canvas {
	if smoothing < 1 {
		smoothing = 1
	}
	return &Canvas{
		lineWidth:   lineWidth,
		eraseRadius: eraseRadius,
		smoothing:   smoothing,
		maxHistory:  DefaultMaxHistory,
		color:       "#ffffff",
	}
}

// Update processes one frame and returns the drawing commands it produced.
// The hand is raw (not wrist-centered); gesture is the frame's classified
// gesture name, empty when nothing matched.
func (c *Canvas) Update(hand landmark.Hand, gesture string, now time.Time) []Command {
	tip := hand.Points[landmark.IndexTip]
	var commands []Command

	switch {
	case gesture == "fist":
		c.drawing = false
		c.havePoint = false
		cmd := Command{Type: "erase", X: tip.X, Y: tip.Y, Radius: c.eraseRadius}
		commands = append(commands, cmd)
		c.history = append(c.history, cmd)

	case gesture == "open_hand":
		c.drawing = false
		c.havePoint = false
		c.shakePositions = append(c.shakePositions, shakeSample{x: tip.X, at: now})
		if len(c.shakePositions) > shakeWindow {
			c.shakePositions = c.shakePositions[len(c.shakePositions)-shakeWindow:]
		}
		if c.detectShake(now) {
			cmd := Command{Type: "clear"}
			commands = append(commands, cmd)
			c.history = []Command{cmd}
			c.shakePositions = nil
			c.shakeQuietTill = now.Add(shakeCooldown)
		}

	case gestureColors[gesture] != "":
		if color := gestureColors[gesture]; color != c.color {
			c.color = color
			commands = append(commands, Command{Type: "color", Color: color})
		}
		commands = append(commands, c.stroke(tip)...)
		c.drawing = true

	default:
		c.drawing = false
		c.havePoint = false
		c.buffer = nil
	}

	c.trimHistory()
	return commands
}

// stroke smooths the fingertip over the buffer and emits a line segment when
// the brush has moved far enough since the last one.
func (c *Canvas) stroke(tip landmark.Point3D) []Command {
	c.buffer = append(c.buffer, canvasPoint{x: tip.X, y: tip.Y})
	if len(c.buffer) > c.smoothing {
		c.buffer = c.buffer[len(c.buffer)-c.smoothing:]
	}

	smooth := canvasPoint{x: tip.X, y: tip.Y}
	if len(c.buffer) >= 2 {
		var sx, sy float64
		for _, p := range c.buffer {
			sx += p.x
			sy += p.y
		}
		smooth = canvasPoint{x: sx / float64(len(c.buffer)), y: sy / float64(len(c.buffer))}
	}

	if !c.havePoint {
		c.lastPoint = smooth
		c.havePoint = true
		return nil
	}

	if math.Hypot(smooth.x-c.lastPoint.x, smooth.y-c.lastPoint.y) <= moveEpsilon {
		return nil
	}

	cmd := Command{
		Type:  "line",
		X1:    c.lastPoint.x,
		Y1:    c.lastPoint.y,
		X2:    smooth.x,
		Y2:    smooth.y,
		Color: c.color,
		Width: c.lineWidth,
	}
	c.history = append(c.history, cmd)
	c.lastPoint = smooth
	return []Command{cmd}
}

// detectShake looks for rapid horizontal direction reversals of the open
// hand within the shake window.
func (c *Canvas) detectShake(now time.Time) bool {
	if now.Before(c.shakeQuietTill) {
		return false
	}
	if len(c.shakePositions) < shakeMinSamples {
		return false
	}

	reversals := 0
	for i := 2; i < len(c.shakePositions); i++ {
		dx1 := c.shakePositions[i-1].x - c.shakePositions[i-2].x
		dx2 := c.shakePositions[i].x - c.shakePositions[i-1].x
		if dx1*dx2 < 0 {
			reversals++
		}
	}

	span := c.shakePositions[len(c.shakePositions)-1].at.Sub(c.shakePositions[0].at)
	return reversals >= shakeMinReversals && span < shakeMaxSpan
}

func (c *Canvas) trimHistory() {
	if len(c.history) <= c.maxHistory {
		return
	}
	tail := c.history[len(c.history)-c.maxHistory/2:]
	trimmed := make([]Command, 0, len(tail)+1)
	trimmed = append(trimmed, Command{Type: "clear"})
	c.history = append(trimmed, tail...)
}

// State returns the full command history, used to catch up a new client.
func (c *Canvas) State() []Command {
	out := make([]Command, len(c.history))
	copy(out, c.history)
	return out
}

// Clear wipes the canvas, leaving a single clear command in the history so
// synced clients also reset.
func (c *Canvas) Clear() {
	c.history = []Command{{Type: "clear"}}
	c.havePoint = false
	c.buffer = nil
}

// CommandCount returns the number of commands in the history.
func (c *Canvas) CommandCount() int {
	return len(c.history)
}

// Drawing reports whether the brush is currently down.
func (c *Canvas) Drawing() bool {
	return c.drawing
}

// Color returns the current brush color.
func (c *Canvas) Color() string {
	return c.color
}
