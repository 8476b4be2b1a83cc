package command

import (
	"errors"
	"fmt"
)

// Names of the entries in the command table.
const (
	Scan        = "scan"
	Scan2       = "scan2"
	Stat        = "stat"
	Disable     = "disable"
	Enable      = "enable"
	Interfaces  = "interfaces"
	DHCP        = "dhcp"
	DHCPDisable = "dhcp_disable"
	Leave       = "leave"
	Metric      = "metric"
	ConnectWEP  = "connect_wep"
	ConnectWPA  = "connect_wpa"
	ConnectOpen = "connect_open"
)

// ErrUnknownCommand is returned for names missing from the table.
var ErrUnknownCommand = errors.New("unknown command")

// Defaults is the built-in command table for iw/ifconfig/dhclient hosts.
func Defaults() map[string]string {
	return map[string]string{
		Scan:        "sudo iw dev :INTERFACE scan",
		Scan2:       "sudo iw dev :INTERFACE2 scan",
		Stat:        "sudo iw dev :INTERFACE link",
		Disable:     "sudo ifconfig :INTERFACE down",
		Enable:      "sudo ifconfig :INTERFACE up",
		Interfaces:  "sudo iw dev",
		DHCP:        "sudo dhclient :INTERFACE",
		DHCPDisable: "dhclient -r :INTERFACE; sudo killall dhclient",
		Leave:       "sudo killall wpa_supplicant",
		Metric:      "sudo ifconfig :INTERFACE metric :METRIC",
		ConnectWEP:  `sudo iw :INTERFACE connect ":ESSID" keys :PASSWORD`,
		ConnectWPA:  `sudo wpa_passphrase ":ESSID" ":PASSWORD" > /tmp/wpa-temp.conf && sudo wpa_supplicant -B -D nl80211 -i :INTERFACE -c /tmp/wpa-temp.conf && rm /tmp/wpa-temp.conf`,
		ConnectOpen: `sudo iw :INTERFACE connect ":ESSID"`,
	}
}

// Table holds command templates with the interface placeholders already filled.
type Table struct {
	commands map[string]string
}

// NewTable merges overrides into the defaults and translates the interface
// placeholders once.
func NewTable(iface, iface2 string, overrides map[string]string) *Table {
	cmds := Defaults()
	for name, tmpl := range overrides {
		cmds[name] = tmpl
	}

	ifaces := map[string]string{
		"interface":  iface,
		"interface2": iface2,
	}
	for name, tmpl := range cmds {
		cmds[name] = Translate(tmpl, ifaces)
	}

	return &Table{commands: cmds}
}

// Get returns the command stored under name.
func (t *Table) Get(name string) (string, error) {
	cmd, ok := t.commands[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return cmd, nil
}

// Render returns the named command with additional placeholders filled.
func (t *Table) Render(name string, values map[string]string) (string, error) {
	cmd, err := t.Get(name)
	if err != nil {
		return "", err
	}
	return Translate(cmd, values), nil
}
