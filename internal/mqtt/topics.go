package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topics builds the topic tree of one amplifier: {prefix}/{node}/...
// where node is the amplifier serial.
type Topics struct {
	Prefix string
	Node   string
}

func (t Topics) base() string { return t.Prefix + "/" + t.Node }

// Status carries the retained online/offline marker and the last will.
func (t Topics) Status() string { return t.base() + "/status" }

// State carries the retained live state.
func (t Topics) State() string { return t.base() + "/state" }

// Presets carries the retained preset list.
func (t Topics) Presets() string { return t.base() + "/presets" }

// Commands is the subscription filter for every command topic.
func (t Topics) Commands() string { return t.base() + "/command/#" }

// CommandKind names a command accepted on the command tree.
type CommandKind string

const (
	CommandLoadPreset CommandKind = "preset/load"
	CommandRefresh    CommandKind = "refresh"
	CommandGainDB     CommandKind = "output/gain_db"
	CommandMute       CommandKind = "output/mute"
)

// Command is a parsed command message.
type Command struct {
	Kind     CommandKind
	Channel  int // output commands only
	PresetID int
	GainDB   float64
	Mute     bool
}

// ParseCommand decodes a message received under Commands().
func (t Topics) ParseCommand(topic string, payload []byte) (Command, error) {
	rest, ok := strings.CutPrefix(topic, t.base()+"/command/")
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	body := strings.TrimSpace(string(payload))

	switch parts := strings.Split(rest, "/"); {
	case rest == string(CommandRefresh):
		return Command{Kind: CommandRefresh}, nil

	case rest == string(CommandLoadPreset):
		id, err := strconv.Atoi(body)
		if err != nil {
			return Command{}, fmt.Errorf("%w: preset id %q", ErrInvalidPayload, body)
		}
		return Command{Kind: CommandLoadPreset, PresetID: id}, nil

	case len(parts) == 3 && parts[0] == "output":
		ch, err := strconv.Atoi(parts[1])
		if err != nil {
			return Command{}, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
		}
		switch parts[2] {
		case "gain_db":
			db, err := strconv.ParseFloat(body, 64)
			if err != nil {
				return Command{}, fmt.Errorf("%w: gain_db %q", ErrInvalidPayload, body)
			}
			return Command{Kind: CommandGainDB, Channel: ch, GainDB: db}, nil
		case "mute":
			mute, err := parseBool(body)
			if err != nil {
				return Command{}, err
			}
			return Command{Kind: CommandMute, Channel: ch, Mute: mute}, nil
		}
	}
	return Command{}, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "on":
		return true, nil
	case "0", "false", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: boolean %q", ErrInvalidPayload, s)
}
