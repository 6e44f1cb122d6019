package kmlsync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/EndPointCorp/kmlsync/internal/asset"
	"github.com/EndPointCorp/kmlsync/internal/command"
	"github.com/EndPointCorp/kmlsync/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	MessageTypeCommands     = "commands"
	MessageTypeScene        = "scene"
	MessageTypeWindowAssets = "window_assets"
)

// Message is one bus envelope. Data is decoded according to Type.
type Message struct {
	Type    string          `json:"type"`
	ReplyTo string          `json:"reply_to,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// CommandRequest is the wire shape of one command on the bus and socket.
// Asset may be an object or a string holding serialized JSON.
type CommandRequest struct {
	Command    string          `json:"command"`
	WindowSlug string          `json:"window_slug"`
	AssetSlug  string          `json:"asset_slug,omitempty"`
	Asset      json.RawMessage `json:"asset,omitempty"`
}

// ToCommand validates the request into a processor command.
func (r CommandRequest) ToCommand() (command.Command, error) {
	if strings.TrimSpace(r.Command) == "" || r.WindowSlug == "" {
		return command.Command{}, fmt.Errorf("%w: command and window_slug", ErrMissingParam)
	}
	action := command.ParseAction(r.Command)
	out := command.Command{
		Action:     action,
		WindowSlug: r.WindowSlug,
		AssetSlug:  command.TargetSlug(action, r.AssetSlug, assetValue(r.Asset)),
	}
	if action != command.ActionAdd {
		return out, nil
	}
	a, err := decodeAsset(r.Asset)
	if err != nil {
		return command.Command{}, err
	}
	out.Asset = a
	return out, nil
}

// assetValue returns asset as a plain string when it was sent as a JSON
// string, which is how delete names its target without asset_slug.
func assetValue(raw json.RawMessage) string {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

func decodeAsset(raw json.RawMessage) (*asset.Asset, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("%w: %v", asset.ErrInvalidAsset, err)
		}
		raw = []byte(encoded)
	}
	a, err := asset.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type messageData struct {
	Commands []CommandRequest `json:"commands"`
	Scene    *command.Scene   `json:"scene"`
}

// Reply carries a flattened command result back to a reply channel.
type Reply struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
	Warning bool   `json:"warning"`
}

// Publisher delivers replies to the transport a message arrived on.
type Publisher interface {
	Publish(reply Reply) error
}

// Bus decodes bus messages and applies them through its processor.
type Bus struct {
	commands      *command.Processor
	sceneActivity string
	logger        zerolog.Logger
}

func NewBus(commands *command.Processor, sceneActivity string, logger zerolog.Logger) *Bus {
	return &Bus{
		commands:      commands,
		sceneActivity: strings.TrimSpace(sceneActivity),
		logger:        logger,
	}
}

// Dispatch handles msg and, when it names a reply channel, publishes the
// flattened result there.
func (b *Bus) Dispatch(msg Message, pub Publisher) (command.Result, error) {
	res := b.Handle(msg)
	channel := strings.TrimSpace(msg.ReplyTo)
	if channel == "" || pub == nil {
		return res, nil
	}
	reply := Reply{
		ID:      uuid.NewString(),
		Channel: channel,
		Text:    res.String(),
		Warning: res.Warning,
	}
	if err := pub.Publish(reply); err != nil {
		return res, fmt.Errorf("publish reply to %s: %w", channel, err)
	}
	return res, nil
}

// Handle applies one message. Malformed entries become warning lines; the
// rest of the message is still applied.
func (b *Bus) Handle(msg Message) command.Result {
	msgType := strings.TrimSpace(msg.Type)
	observability.RecordBusMessage(metricMessageType(msgType))
	b.logger.Debug().Str("type", msgType).Str("reply_to", msg.ReplyTo).Msg("bus message")

	if msgType == MessageTypeWindowAssets {
		return b.applyWindowAssets(msg.Data)
	}

	var data messageData
	if len(bytes.TrimSpace(msg.Data)) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return command.Warning(fmt.Sprintf("Malformed %s message data: %v", msgType, err))
		}
	}

	var res command.Result
	switch {
	case msgType == MessageTypeScene && data.Scene == nil:
		res.Merge(command.Warning("Scene message without scene data"))
	case msgType == MessageTypeCommands && data.Commands == nil:
		res.Merge(command.Warning("Commands message without commands list"))
	case data.Commands == nil && data.Scene == nil:
		res.Merge(command.Warning(fmt.Sprintf("Unknown message type %q", msgType)))
	}
	for i, req := range data.Commands {
		cmd, err := req.ToCommand()
		if err != nil {
			res.Merge(command.Warning(fmt.Sprintf("Rejected command %d: %v", i, err)))
			continue
		}
		res.Merge(b.commands.Apply(cmd))
	}
	if data.Scene != nil {
		res.Merge(b.commands.ApplyScene(*data.Scene, b.sceneActivity))
	}
	return res
}

// applyWindowAssets replaces each listed window wholesale. Data maps window
// slugs to full asset lists; windows are applied in slug order.
func (b *Bus) applyWindowAssets(raw json.RawMessage) command.Result {
	var windows map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &windows); err != nil {
		return command.Warning(fmt.Sprintf("Malformed window_assets message data: %v", err))
	}
	slugs := make([]string, 0, len(windows))
	for slug := range windows {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var res command.Result
	for _, slug := range slugs {
		assets := make([]asset.Asset, 0, len(windows[slug]))
		var bad error
		for _, item := range windows[slug] {
			a, err := asset.Parse(item)
			if err != nil {
				bad = err
				break
			}
			assets = append(assets, a)
		}
		if bad != nil {
			res.Merge(command.Warning(fmt.Sprintf("Skipping window %s: %v", slug, bad)))
			continue
		}
		res.Merge(b.commands.Replace(slug, assets))
	}
	return res
}

func metricMessageType(msgType string) string {
	switch msgType {
	case MessageTypeCommands, MessageTypeScene, MessageTypeWindowAssets:
		return msgType
	default:
		return "other"
	}
}
