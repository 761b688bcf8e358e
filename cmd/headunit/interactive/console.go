// Package interactive provides the interactive command-line interface
// for the projection head unit.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/openprojection/headunit-go/pkg/connection"
	"github.com/openprojection/headunit-go/pkg/discovery"
	"github.com/openprojection/headunit-go/pkg/service"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// Config wires the console to the running head unit.
type Config struct {
	// Manager drives the connection lifecycle (required).
	Manager *connection.Manager

	// Input receives injected button, rotary, and touch events.
	Input *service.LocalInputBackend

	// Location receives injected position fixes.
	Location *service.ManualLocationSource

	// Advertiser reports whether the head unit is visible on the
	// network (optional).
	Advertiser discovery.Advertiser

	// AccessPoint describes the wireless network offered for wifi
	// projection.
	AccessPoint service.AccessPoint

	// NightModeFile is created or removed to toggle night mode.
	NightModeFile string
}

// Console handles interactive mode for headunit.
type Console struct {
	config Config
	rl     *readline.Instance
}

// New creates a new interactive console.
func New(config Config) (*Console, error) {
	if config.Manager == nil {
		return nil, errors.New("interactive: connection manager is required")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "headunit> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{config: config, rl: rl}, nil
}

// Stdout returns a writer that coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "status", "s":
			c.cmdStatus()

		case "pause":
			c.cmdPause()

		case "resume":
			c.cmdResume()

		case "disconnect", "d":
			c.cmdDisconnect()

		case "key", "k":
			c.cmdKey(args)

		case "rotary", "rot":
			c.cmdRotary(args)

		case "touch", "t":
			c.cmdTouch(args)

		case "location", "loc":
			c.cmdLocation(args)

		case "night":
			c.cmdNight(args)

		case "wifi":
			c.cmdWifi(args)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Head Unit Commands:
  Connection:
    status                 - Show connection and session state
    pause                  - Put the session in the background
    resume                 - Bring the session back to the foreground
    disconnect             - Ask the device to end the session

  Input Injection:
    key <name> [long]      - Press a button (run 'key' alone for names)
    rotary <delta>         - Turn the rotary controller
    touch <x> <y> [action] - Tap the screen (action: press, release, drag)

  Sensors:
    location <lat> <lon> [speed] [bearing] - Publish a location fix
    night [on|off]         - Toggle or show night mode

  Wireless:
    wifi [iface]           - Show the access point and hostapd config

  General:
    help                   - Show this help
    quit                   - Exit head unit`)
}

// cmdStatus shows the head unit status.
func (c *Console) cmdStatus() {
	out := c.rl.Stdout()
	fmt.Fprintln(out, "\nHead Unit Status")
	fmt.Fprintln(out, "-------------------------------------------")
	fmt.Fprintf(out, "  Connection:   %s\n", c.config.Manager.State())

	if s := c.config.Manager.Session(); s != nil {
		id := s.ID()
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(out, "  Session:      %s (%s)\n", id, s.State())
	} else {
		fmt.Fprintf(out, "  Session:      none\n")
	}

	if c.config.Advertiser != nil {
		status := "stopped"
		if c.config.Advertiser.Advertising() {
			status = "active"
		}
		fmt.Fprintf(out, "  Advertising:  %s\n", status)
	}

	if c.config.NightModeFile != "" {
		mode := "day"
		if _, err := os.Stat(c.config.NightModeFile); err == nil {
			mode = "night"
		}
		fmt.Fprintf(out, "  Night mode:   %s\n", mode)
	}

	fmt.Fprintln(out)
}

// cmdPause moves the session to the background.
func (c *Console) cmdPause() {
	c.config.Manager.Pause()
	fmt.Fprintln(c.rl.Stdout(), "Session paused (native mode)")
}

// cmdResume brings the session back to the foreground.
func (c *Console) cmdResume() {
	c.config.Manager.Resume()
	fmt.Fprintln(c.rl.Stdout(), "Session resumed (projection mode)")
}

// cmdDisconnect asks the device to end the session.
func (c *Console) cmdDisconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.config.Manager.Disconnect(ctx); err != nil {
		if errors.Is(err, connection.ErrNoSession) {
			fmt.Fprintln(c.rl.Stdout(), "No device connected")
		} else {
			fmt.Fprintf(c.rl.Stdout(), "Disconnect failed: %v\n", err)
		}
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Requested disconnect")
}

// cmdKey injects a button press and release.
func (c *Console) cmdKey(args []string) {
	out := c.rl.Stdout()
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: key <name> [long]")
		fmt.Fprintf(out, "Keys: %s\n", strings.Join(keyNames(), ", "))
		return
	}

	code, ok := lookupKeycode(args[0])
	if !ok {
		fmt.Fprintf(out, "Unknown key: %s (run 'key' for the list)\n", args[0])
		return
	}
	long := len(args) > 1 && strings.EqualFold(args[1], "long")

	press := service.InputEvent{Button: &service.ButtonInput{Code: code, Pressed: true, Long: long}}
	release := service.InputEvent{Button: &service.ButtonInput{Code: code, Pressed: false, Long: long}}
	if !c.inject(press) || !c.inject(release) {
		return
	}
	fmt.Fprintf(out, "Sent key %s (code %d)\n", strings.ToLower(args[0]), code)
}

// cmdRotary injects a rotary controller turn.
func (c *Console) cmdRotary(args []string) {
	out := c.rl.Stdout()
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: rotary <delta>  (positive = clockwise)")
		return
	}

	delta, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(out, "Invalid delta: %v\n", err)
		return
	}

	if !c.inject(service.InputEvent{Rotary: &service.RotaryInput{Delta: int32(delta)}}) {
		return
	}
	fmt.Fprintf(out, "Sent rotary delta %d\n", delta)
}

// cmdTouch injects a touch tap, or a single touch action.
func (c *Console) cmdTouch(args []string) {
	out := c.rl.Stdout()
	if len(args) < 2 {
		fmt.Fprintln(out, "Usage: touch <x> <y> [press|release|drag]")
		return
	}

	x, errX := strconv.ParseUint(args[0], 10, 32)
	y, errY := strconv.ParseUint(args[1], 10, 32)
	if errX != nil || errY != nil {
		fmt.Fprintln(out, "Coordinates must be non-negative integers")
		return
	}

	if len(args) > 2 {
		action, ok := parseTouchAction(args[2])
		if !ok {
			fmt.Fprintf(out, "Unknown touch action: %s\n", args[2])
			return
		}
		ev := service.InputEvent{Touch: &service.TouchInput{Action: action, X: uint32(x), Y: uint32(y)}}
		if !c.inject(ev) {
			return
		}
		fmt.Fprintf(out, "Sent touch %s at %d,%d\n", action, x, y)
		return
	}

	press := service.InputEvent{Touch: &service.TouchInput{Action: wire.TouchActionPress, X: uint32(x), Y: uint32(y)}}
	release := service.InputEvent{Touch: &service.TouchInput{Action: wire.TouchActionRelease, X: uint32(x), Y: uint32(y)}}
	if !c.inject(press) || !c.inject(release) {
		return
	}
	fmt.Fprintf(out, "Sent tap at %d,%d\n", x, y)
}

// cmdLocation publishes a location fix to the sensor service.
func (c *Console) cmdLocation(args []string) {
	out := c.rl.Stdout()
	if c.config.Location == nil {
		fmt.Fprintln(out, "No location source")
		return
	}

	fix, err := parseLocation(args)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return
	}

	c.config.Location.Set(fix)
	fmt.Fprintf(out, "Location set to %.6f,%.6f\n", fix.Latitude, fix.Longitude)
}

// cmdNight toggles or shows night mode.
func (c *Console) cmdNight(args []string) {
	out := c.rl.Stdout()
	if c.config.NightModeFile == "" {
		fmt.Fprintln(out, "No night mode file configured")
		return
	}

	if len(args) == 0 {
		mode := "day"
		if _, err := os.Stat(c.config.NightModeFile); err == nil {
			mode = "night"
		}
		fmt.Fprintf(out, "Night mode: %s\n", mode)
		return
	}

	switch strings.ToLower(args[0]) {
	case "on":
		if err := os.WriteFile(c.config.NightModeFile, nil, 0o644); err != nil {
			fmt.Fprintf(out, "Failed to enable night mode: %v\n", err)
			return
		}
		fmt.Fprintln(out, "Night mode on (next sensor poll picks it up)")
	case "off":
		if err := os.Remove(c.config.NightModeFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(out, "Failed to disable night mode: %v\n", err)
			return
		}
		fmt.Fprintln(out, "Night mode off")
	default:
		fmt.Fprintln(out, "Usage: night [on|off]")
	}
}

// cmdWifi shows the access point used for wifi projection.
func (c *Console) cmdWifi(args []string) {
	out := c.rl.Stdout()
	iface := "wlan0"
	if len(args) > 0 {
		iface = args[0]
	}

	ap := c.config.AccessPoint
	if ap.SSID == "" {
		fmt.Fprintln(out, "No access point configured")
		return
	}

	fmt.Fprintf(out, "SSID:       %s\n", ap.SSID)
	fmt.Fprintf(out, "Passphrase: %s\n", ap.Passphrase)
	fmt.Fprintf(out, "PSK:        %x\n", ap.PSK())
	fmt.Fprintln(out, "\nhostapd.conf:")
	fmt.Fprint(out, ap.HostapdConf(iface))
}

// inject hands an event to the input backend and reports the outcome.
func (c *Console) inject(ev service.InputEvent) bool {
	if c.config.Input == nil {
		fmt.Fprintln(c.rl.Stdout(), "No input backend")
		return false
	}
	if !c.config.Input.Inject(ev) {
		fmt.Fprintln(c.rl.Stdout(), "Input dropped (is a device connected?)")
		return false
	}
	return true
}

// keycodes maps console key names to wire key codes.
var keycodes = map[string]uint32{
	"enter":      wire.KeycodeEnter,
	"left":       wire.KeycodeLeft,
	"right":      wire.KeycodeRight,
	"up":         wire.KeycodeUp,
	"down":       wire.KeycodeDown,
	"back":       wire.KeycodeBack,
	"home":       wire.KeycodeHome,
	"phone":      wire.KeycodePhone,
	"callend":    wire.KeycodeCallEnd,
	"mic":        wire.KeycodeMicrophone,
	"play":       wire.KeycodePlay,
	"pause":      wire.KeycodePause,
	"toggleplay": wire.KeycodeTogglePlay,
	"next":       wire.KeycodeNext,
	"prev":       wire.KeycodePrev,
	"nav":        wire.KeycodeNavigation,
}

// lookupKeycode resolves a key name or numeric code.
func lookupKeycode(name string) (uint32, bool) {
	if code, ok := keycodes[strings.ToLower(name)]; ok {
		return code, true
	}
	if n, err := strconv.ParseUint(name, 10, 32); err == nil {
		return uint32(n), true
	}
	return 0, false
}

// keyNames returns the known key names sorted for display.
func keyNames() []string {
	names := make([]string, 0, len(keycodes))
	for name := range keycodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseTouchAction resolves a touch action name.
func parseTouchAction(name string) (wire.TouchAction, bool) {
	switch strings.ToLower(name) {
	case "press":
		return wire.TouchActionPress, true
	case "release":
		return wire.TouchActionRelease, true
	case "drag":
		return wire.TouchActionDrag, true
	default:
		return 0, false
	}
}

// parseLocation builds a location fix from lat, lon, and the optional
// speed and bearing arguments.
func parseLocation(args []string) (service.Location, error) {
	if len(args) < 2 {
		return service.Location{}, errors.New("usage: location <lat> <lon> [speed] [bearing]")
	}

	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil || lat < -90 || lat > 90 {
		return service.Location{}, fmt.Errorf("invalid latitude: %s", args[0])
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil || lon < -180 || lon > 180 {
		return service.Location{}, fmt.Errorf("invalid longitude: %s", args[1])
	}

	fix := service.Location{Latitude: lat, Longitude: lon}
	if len(args) > 2 {
		speed, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return service.Location{}, fmt.Errorf("invalid speed: %s", args[2])
		}
		fix.Speed = &speed
	}
	if len(args) > 3 {
		bearing, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return service.Location{}, fmt.Errorf("invalid bearing: %s", args[3])
		}
		fix.Bearing = &bearing
	}
	return fix, nil
}
