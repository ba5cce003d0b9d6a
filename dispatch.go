package main

import (
	"log"
	"strings"
	"time"

	"gopkg.in/irc.v4"
)

// scopedErrors are numeric replies that carry an offending channel or nick
// as their first argument: the error belongs in that conversation, and for
// channels the membership state reverts to Left.
var scopedErrors = map[string]bool{
	"401": true, // ERR_NOSUCHNICK
	"403": true, // ERR_NOSUCHCHANNEL
	"404": true, // ERR_CANNOTSENDTOCHAN
	"405": true, // ERR_TOOMANYCHANNELS
	"442": true, // ERR_NOTONCHANNEL
	"471": true, // ERR_CHANNELISFULL
	"473": true, // ERR_INVITEONLYCHAN
	"474": true, // ERR_BANNEDFROMCHAN
	"475": true, // ERR_BADCHANNELKEY
	"476": true, // ERR_BADCHANMASK
	"482": true, // ERR_CHANOPRIVSNEEDED
}

// serverInfo are informational banner numerics shown in the server feed.
var serverInfo = map[string]bool{
	"001": true, "002": true, "003": true, "004": true,
	"251": true, "252": true, "253": true, "254": true, "255": true,
	"265": true, "266": true,
	"372": true, "375": true, "376": true, "422": true,
}

// frameNoop are frames that are classified but deliberately produce no
// event. PING is answered by the session loop before classification.
var frameNoop = map[string]bool{
	"PING": true, "PONG": true, "CAP": true,
	"PART": true, "QUIT": true, "NICK": true, "TOPIC": true,
	"332": true, "333": true, "366": true,
}

// classifyFrame maps one inbound frame to its application events. This is a
// total function over frame variants: everything either yields events, is an
// explicit no-op, or is logged at debug level and dropped. The caller emits
// the per-frame activity event itself.
func classifyFrame(msg *irc.Message, self string) []BackendEvent {
	switch {
	case msg.Command == "PRIVMSG":
		return classifyPrivmsg(msg, self)

	case msg.Command == "NOTICE":
		return []BackendEvent{ServerMessageEvent{Text: msg.Trailing()}}

	case msg.Command == "JOIN":
		// Only our own join confirmation changes state; joins by others
		// are discarded.
		if msg.Prefix != nil && strings.EqualFold(msg.Prefix.Name, self) && len(msg.Params) > 0 {
			return []BackendEvent{ChannelJoinedEvent{Name: msg.Params[0]}}
		}
		return nil

	case msg.Command == "MODE":
		return classifyMode(msg)

	case msg.Command == "353":
		return classifyNames(msg)

	case msg.Command == "464" || msg.Command == "465":
		return []BackendEvent{ProtocolErrorEvent{
			Kind: ErrorAuth,
			Text: msg.Trailing() + " (likely bad credentials or rate-limited)",
		}}

	case scopedErrors[msg.Command]:
		target := ""
		if len(msg.Params) > 1 {
			target = msg.Params[1]
		}
		return []BackendEvent{ProtocolErrorEvent{
			Kind:   ErrorScoped,
			Target: target,
			Text:   msg.Trailing(),
		}}

	case serverInfo[msg.Command]:
		return []BackendEvent{ServerMessageEvent{Text: msg.Trailing()}}

	case isErrorNumeric(msg.Command):
		text := msg.Trailing()
		if len(msg.Params) > 2 {
			text = strings.TrimSpace(strings.Join(msg.Params[1:], " "))
		}
		return []BackendEvent{ProtocolErrorEvent{Kind: ErrorServer, Text: text}}

	case frameNoop[msg.Command]:
		return nil

	default:
		log.Printf("dispatch: ignoring %s frame", msg.Command)
		return nil
	}
}

// classifyPrivmsg turns a PRIVMSG into a chat message. A CTCP ACTION wrapper
// reclassifies it as an action with the wrapper stripped. Private messages
// are filed under the sender's nick.
func classifyPrivmsg(msg *irc.Message, self string) []BackendEvent {
	if msg.Prefix == nil || len(msg.Params) < 2 {
		log.Printf("dispatch: malformed PRIVMSG")
		return nil
	}
	from := msg.Prefix.Name
	target := msg.Params[0]
	if strings.EqualFold(target, self) {
		target = from
	}
	text := msg.Trailing()

	kind := MessageText
	if strings.HasPrefix(text, "\x01ACTION") {
		kind = MessageAction
		text = strings.TrimPrefix(text, "\x01ACTION")
		text = strings.TrimPrefix(text, " ")
		text = strings.TrimSuffix(text, "\x01")
	}

	return []BackendEvent{MessageEvent{
		Target: target,
		From:   from,
		Kind:   kind,
		Text:   text,
		Time:   time.Now(),
	}}
}

// classifyMode walks a channel mode string and reports one moderator-added
// event per user granted +o.
func classifyMode(msg *irc.Message) []BackendEvent {
	if len(msg.Params) < 2 || !isChannelName(msg.Params[0]) {
		return nil
	}
	channel := msg.Params[0]
	modes := msg.Params[1]
	args := msg.Params[2:]

	var evs []BackendEvent
	adding := true
	argIdx := 0
	for _, r := range modes {
		switch r {
		case '+':
			adding = true
		case '-':
			adding = false
		case 'o':
			if argIdx < len(args) {
				if adding {
					evs = append(evs, ModeratorAddedEvent{Channel: channel, Username: args[argIdx]})
				}
				argIdx++
			}
		case 'v', 'b', 'k', 'l':
			// modes that consume an argument we don't care about
			if argIdx < len(args) {
				argIdx++
			}
		}
	}
	return evs
}

// classifyNames reports a moderator-added event for every "@"-prefixed entry
// in an initial RPL_NAMREPLY listing.
func classifyNames(msg *irc.Message) []BackendEvent {
	// params: self, visibility, channel, names
	if len(msg.Params) < 4 {
		return nil
	}
	channel := msg.Params[2]
	var evs []BackendEvent
	for _, name := range strings.Fields(msg.Trailing()) {
		if !strings.HasPrefix(name, "@") {
			continue
		}
		nick := strings.TrimLeft(name, "@+%~&")
		if nick != "" {
			evs = append(evs, ModeratorAddedEvent{Channel: channel, Username: nick})
		}
	}
	return evs
}

func isChannelName(s string) bool {
	return len(s) > 0 && (s[0] == '#' || s[0] == '&')
}

// isErrorNumeric reports whether a command is an error-class numeric reply
// (4xx/5xx) not otherwise classified.
func isErrorNumeric(cmd string) bool {
	if len(cmd) != 3 || (cmd[0] != '4' && cmd[0] != '5') {
		return false
	}
	for i := 1; i < 3; i++ {
		if cmd[i] < '0' || cmd[i] > '9' {
			return false
		}
	}
	return true
}
