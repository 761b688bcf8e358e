// Package commands implements the headunit-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openprojection/headunit-go/pkg/log"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [sess:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	sessID := shortenSessionID(event.SessionID)

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Message != nil:
		typeLabel = event.Message.Type.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [sess:%s] %-3s %s %s\n", ts, sessID, event.Direction, event.Layer, typeLabel)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatFrameDetails writes frame-specific details.
func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Channel: %s\n", frame.Channel)
	fmt.Fprintf(w, "  Kind: %s\n", frame.Kind)
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if frame.Encrypted {
		fmt.Fprintln(w, "  Encrypted")
	}
}

// formatMessageDetails writes message-specific details.
func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	fmt.Fprintf(w, "  Channel: %s\n", msg.Channel)
	fmt.Fprintf(w, "  Size: %d bytes\n", msg.Size)
	if msg.Encrypted {
		fmt.Fprintln(w, "  Encrypted")
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, errData *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", errData.Layer)
	fmt.Fprintf(w, "  Message: %s\n", errData.Message)
	if errData.Channel != nil {
		fmt.Fprintf(w, "  Channel: %s\n", *errData.Channel)
	}
	if errData.Aborted {
		fmt.Fprintln(w, "  Aborted: deliberate stop")
	}
}

// ParseLayerFlag parses a layer string from a command-line flag
// (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "messenger":
		return log.LayerMessenger, nil
	case "session":
		return log.LayerSession, nil
	case "service":
		return log.LayerService, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, messenger, session, or service)", s)
	}
}

// ParseDirectionFlag parses a direction string from a command-line flag
// (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from a command-line flag
// (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}

// channelNames maps flag spellings to channel ids.
var channelNames = map[string]wire.ChannelID{
	"control":          wire.ChannelControl,
	"input":            wire.ChannelInput,
	"sensor":           wire.ChannelSensor,
	"video":            wire.ChannelVideo,
	"media-audio":      wire.ChannelMediaAudio,
	"speech-audio":     wire.ChannelSpeechAudio,
	"system-audio":     wire.ChannelSystemAudio,
	"telephony-audio":  wire.ChannelTelephonyAudio,
	"microphone":       wire.ChannelMicrophone,
	"bluetooth":        wire.ChannelBluetooth,
	"wifi-projection":  wire.ChannelWifiProjection,
	"media-status":     wire.ChannelMediaStatus,
	"notification":     wire.ChannelNotification,
	"vendor-extension": wire.ChannelVendorExtension,
}

// ParseChannelFlag parses a channel name or numeric id from a
// command-line flag (case-insensitive).
func ParseChannelFlag(s string) (wire.ChannelID, error) {
	if ch, ok := channelNames[strings.ToLower(s)]; ok {
		return ch, nil
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		return wire.ChannelID(n), nil
	}
	return 0, fmt.Errorf("invalid channel: %s (use a channel name or id)", s)
}

// RunView executes the view command.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		formatEvent(output, event)
	}

	return nil
}
