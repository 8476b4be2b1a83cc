package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"wifiwatch/internal/command"
	"wifiwatch/internal/iw"
	"wifiwatch/internal/models"
)

var (
	// ErrNoLease is returned when DHCP finished without leasing an address.
	ErrNoLease = errors.New("no DHCP lease obtained")
	// ErrInterfaceMissing is returned when the interface does not exist.
	ErrInterfaceMissing = errors.New("interface does not exist")
	// ErrUnsafeValue is returned when a value was refused by the templater.
	ErrUnsafeValue = errors.New("value contains characters that cannot be passed to a command")
	// ErrCommandOutput is returned when a command that should be silent printed something.
	ErrCommandOutput = errors.New("unexpected command output")
)

// execute announces cmd through the event stream and runs it on the caller's
// goroutine.
func (e *Engine) execute(ctx context.Context, cmd string) (command.Result, error) {
	if err := e.call(func() {
		e.emit(Event{Kind: EventCommand, Command: cmd})
	}); err != nil {
		return command.Result{}, err
	}
	e.log.Debug().Str("command", cmd).Msg("Executing command")

	return e.exec.Run(ctx, cmd), nil
}

// report emits an error event from a caller goroutine and returns err.
func (e *Engine) report(msg string, err error) error {
	if callErr := e.call(func() { e.fail(msg) }); callErr != nil {
		return callErr
	}
	return err
}

func (e *Engine) render(name string, values map[string]string) (string, error) {
	cmd, err := e.commands.Render(name, values)
	if err != nil {
		return "", err
	}
	for key, value := range values {
		if value != "" && command.HasPlaceholder(cmd, key) {
			return "", fmt.Errorf("%w: %s", ErrUnsafeValue, key)
		}
	}
	return cmd, nil
}

// shellActive are the characters that stay live inside a double-quoted
// shell word.
const shellActive = "$`\\\""

// wepKey is the form of a key passed unquoted to the WEP connect command.
var wepKey = regexp.MustCompile(`^(d:)?([0-3]:)?[A-Za-z0-9]+$`)

// checkConnectValues rejects network-supplied or user-supplied values that
// the connect templates would hand to the shell with live expansions.
func checkConnectValues(name string, values map[string]string) error {
	for key, value := range values {
		if strings.ContainsAny(value, shellActive) {
			return fmt.Errorf("%w: %s", ErrUnsafeValue, key)
		}
	}
	if name == command.ConnectWEP && !wepKey.MatchString(values["password"]) {
		return fmt.Errorf("%w: password", ErrUnsafeValue)
	}
	return nil
}

// connectCommand picks the connect template for the network's security.
func connectCommand(n models.NetworkRecord, password string) (string, map[string]string) {
	switch {
	case n.EncryptionWEP:
		return command.ConnectWEP, map[string]string{"essid": n.SSID, "password": password}
	case n.EncryptionWPA || n.EncryptionWPA2:
		return command.ConnectWPA, map[string]string{"essid": n.SSID, "password": password}
	default:
		return command.ConnectOpen, map[string]string{"essid": n.SSID}
	}
}

// Join connects to n, then polls the link once so a join or former event
// follows a successful connect. The connect failure, if any, is both emitted
// and returned; the engine keeps running either way.
func (e *Engine) Join(ctx context.Context, n models.NetworkRecord, password string) error {
	name, values := connectCommand(n, password)
	if err := checkConnectValues(name, values); err != nil {
		return e.report(fmt.Sprintf("Refusing to join %q: %v", n.SSID, err), err)
	}
	cmd, err := e.render(name, values)
	if err != nil {
		return e.report(fmt.Sprintf("Refusing to join %q: %v", n.SSID, err), err)
	}

	res, err := e.execute(ctx, cmd)
	if err != nil {
		return err
	}

	var failure error
	if res.Err != nil || strings.TrimSpace(res.Stderr) != "" {
		failure = commandFailure(res)
		e.log.Error().Err(failure).Str("ssid", n.SSID).Str("stderr", res.Stderr).Msg("Join failed")
	}

	if err := e.call(func() {
		if failure != nil {
			e.fail(fmt.Sprintf("There was an error joining %q: %v", n.SSID, failure))
		}
		e.tracker.Reset()
	}); err != nil {
		return err
	}

	if err := e.pollAndWait(ctx); err != nil {
		return err
	}
	return failure
}

// Leave disconnects from the current network and polls the link afterwards.
func (e *Engine) Leave(ctx context.Context) error {
	cmd, err := e.commands.Get(command.Leave)
	if err != nil {
		return err
	}

	res, err := e.execute(ctx, cmd)
	if err != nil {
		return err
	}
	if err := e.pollAndWait(ctx); err != nil {
		return err
	}

	if res.Err != nil {
		return e.report("There was an error when we tried to disconnect from the network",
			fmt.Errorf("leave failed: %w", res.Err))
	}
	return nil
}

// DHCP requests an address for the interface and emits it as a dhcp event.
func (e *Engine) DHCP(ctx context.Context) (string, error) {
	cmd, err := e.commands.Get(command.DHCP)
	if err != nil {
		return "", err
	}

	res, err := e.execute(ctx, cmd)
	if err != nil {
		return "", err
	}
	if res.Err != nil {
		return "", e.report(fmt.Sprintf("There was an unknown error enabling dhcp: %v", res.Err),
			fmt.Errorf("dhcp failed: %w", res.Err))
	}

	ip, ok := iw.ParseLease(res.Stderr)
	if !ok {
		ip, ok = iw.ParseLease(res.Stdout)
	}
	if !ok {
		return "", e.report("Couldn't get an IP Address from DHCP", ErrNoLease)
	}

	if err := e.call(func() { e.emit(Event{Kind: EventDHCP, IP: ip}) }); err != nil {
		return "", err
	}
	return ip, nil
}

// DHCPStop releases the lease and stops the DHCP client.
func (e *Engine) DHCPStop(ctx context.Context) error {
	cmd, err := e.commands.Get(command.DHCPDisable)
	if err != nil {
		return err
	}

	res, err := e.execute(ctx, cmd)
	if err != nil {
		return err
	}
	if res.Err != nil {
		return e.report(fmt.Sprintf("There was an unknown error disabling dhcp: %v", res.Err),
			fmt.Errorf("dhcp stop failed: %w", res.Err))
	}
	return nil
}

// Enable brings the interface up.
func (e *Engine) Enable(ctx context.Context) error {
	return e.toggle(ctx, command.Enable, "enabling")
}

// Disable brings the interface down.
func (e *Engine) Disable(ctx context.Context) error {
	return e.toggle(ctx, command.Disable, "disabling")
}

func (e *Engine) toggle(ctx context.Context, name, verb string) error {
	cmd, err := e.commands.Get(name)
	if err != nil {
		return err
	}

	res, err := e.execute(ctx, cmd)
	if err != nil {
		return err
	}

	if res.Err != nil {
		if strings.Contains(res.Stderr, "No such device") || strings.Contains(res.Err.Error(), "No such device") {
			return e.report(fmt.Sprintf("The interface %s does not exist.", e.cfg.Interface),
				fmt.Errorf("%w: %s", ErrInterfaceMissing, e.cfg.Interface))
		}
		return e.report(fmt.Sprintf("There was an unknown error %s the interface: %v", verb, res.Err),
			fmt.Errorf("%s interface failed: %w", verb, res.Err))
	}

	if out := res.Stdout + res.Stderr; strings.TrimSpace(out) != "" {
		return e.report(fmt.Sprintf("There was an error %s the interface: %s", verb, out),
			fmt.Errorf("%w: %s", ErrCommandOutput, strings.TrimSpace(out)))
	}
	return nil
}

// SetMetric changes the routing metric of the interface.
func (e *Engine) SetMetric(ctx context.Context, metric int) error {
	cmd, err := e.render(command.Metric, map[string]string{"metric": strconv.Itoa(metric)})
	if err != nil {
		return err
	}

	res, err := e.execute(ctx, cmd)
	if err != nil {
		return err
	}
	if res.Err != nil {
		return e.report(fmt.Sprintf("There was an error setting the interface metric: %v", res.Err),
			fmt.Errorf("set metric failed: %w", res.Err))
	}
	return nil
}

// Interfaces lists the wireless interfaces known to the host.
func (e *Engine) Interfaces(ctx context.Context) ([]string, error) {
	cmd, err := e.commands.Get(command.Interfaces)
	if err != nil {
		return nil, err
	}

	res, err := e.execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, e.report(fmt.Sprintf("There was an error listing interfaces: %v", res.Err),
			fmt.Errorf("list interfaces failed: %w", res.Err))
	}
	return iw.ParseInterfaces(res.Stdout), nil
}

func commandFailure(res command.Result) error {
	if res.Err != nil {
		return res.Err
	}
	return fmt.Errorf("%w: %s", ErrCommandOutput, strings.TrimSpace(res.Stderr))
}
