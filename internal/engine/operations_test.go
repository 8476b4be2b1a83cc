package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifiwatch/internal/command"
	"wifiwatch/internal/models"
)

const officeLink = "Connected to aa:bb:cc:dd:ee:ff (on wlan0)\n\tSSID: Office\n"

func wpaNetwork() models.NetworkRecord {
	n := models.NewNetworkRecord("aa:bb:cc:dd:ee:ff")
	n.SSID = "Office"
	n.EncryptionAny = true
	n.EncryptionWPA2 = true
	return n
}

func TestConnectCommand(t *testing.T) {
	wep := models.NewNetworkRecord("00:00:00:00:00:01")
	wep.EncryptionWEP = true
	name, values := connectCommand(wep, "key")
	assert.Equal(t, command.ConnectWEP, name)
	assert.Equal(t, "key", values["password"])

	name, _ = connectCommand(wpaNetwork(), "secret")
	assert.Equal(t, command.ConnectWPA, name)

	wpa1 := models.NewNetworkRecord("00:00:00:00:00:02")
	wpa1.EncryptionWPA = true
	name, _ = connectCommand(wpa1, "secret")
	assert.Equal(t, command.ConnectWPA, name)

	name, values = connectCommand(models.NewNetworkRecord("00:00:00:00:00:03"), "ignored")
	assert.Equal(t, command.ConnectOpen, name)
	assert.NotContains(t, values, "password")
}

func TestJoinKnownNetwork(t *testing.T) {
	connect := `sudo wpa_passphrase "Office" "secret" > /tmp/wpa-temp.conf && sudo wpa_supplicant -B -D nl80211 -i wlan0 -c /tmp/wpa-temp.conf && rm /tmp/wpa-temp.conf`

	exec := newFakeExecutor()
	exec.queue(scanCmd, command.Result{Stdout: bss("aa:bb:cc:dd:ee:ff", "Office", -40)})
	exec.always(connect, command.Result{})
	exec.always(statCmd, command.Result{Stdout: officeLink})
	e := newTestEngine(t, Config{}, exec)

	scanOnce(t, e)

	require.NoError(t, e.Join(context.Background(), wpaNetwork(), "secret"))
	assert.Equal(t, 1, exec.called(connect))

	ev := next(t, e)
	require.Equal(t, EventJoin, ev.Kind)
	assert.Equal(t, "Office", ev.Network.SSID)
}

func TestJoinEmitsCommand(t *testing.T) {
	exec := newFakeExecutor()
	exec.always(statCmd, command.Result{Stdout: notConnected})
	e := newTestEngine(t, Config{}, exec)

	open := models.NewNetworkRecord("00:00:00:00:00:03")
	open.SSID = "Guest"
	require.NoError(t, e.Join(context.Background(), open, ""))

	ev := <-e.Events()
	assert.Equal(t, EventCommand, ev.Kind)
	assert.Equal(t, `sudo iw wlan0 connect "Guest"`, ev.Command)
}

func TestJoinRejoinsAfterReset(t *testing.T) {
	exec := newFakeExecutor()
	exec.always(statCmd, command.Result{Stdout: officeLink})
	e := newTestEngine(t, Config{}, exec)

	require.NoError(t, e.pollAndWait(context.Background()))
	assert.Equal(t, EventFormer, next(t, e).Kind)

	// Joining resets the tracker, so the same association reports again.
	require.NoError(t, e.Join(context.Background(), wpaNetwork(), "secret"))
	assert.Equal(t, EventFormer, next(t, e).Kind)
}

func TestJoinFailure(t *testing.T) {
	connect := `sudo iw wlan0 connect "Guest"`
	exec := newFakeExecutor()
	exec.always(connect, command.Result{Err: &command.ExitError{Command: connect, Code: 1}, Stderr: "command failed: Operation already in progress (-114)\n"})
	exec.always(statCmd, command.Result{Stdout: notConnected})
	e := newTestEngine(t, Config{}, exec)

	open := models.NewNetworkRecord("00:00:00:00:00:03")
	open.SSID = "Guest"
	err := e.Join(context.Background(), open, "")
	require.Error(t, err)
	assert.Equal(t, 1, command.ExitCode(err))

	ev := next(t, e)
	assert.Equal(t, EventError, ev.Kind)
	assert.Contains(t, ev.Message, "Guest")

	// The link is still polled after a failed connect.
	assert.Equal(t, 1, exec.called(statCmd))
}

func TestJoinStderrIsFailure(t *testing.T) {
	connect := `sudo iw wlan0 connect "Guest"`
	exec := newFakeExecutor()
	exec.always(connect, command.Result{Stderr: "nl80211 not found\n"})
	exec.always(statCmd, command.Result{Stdout: notConnected})
	e := newTestEngine(t, Config{}, exec)

	open := models.NewNetworkRecord("00:00:00:00:00:03")
	open.SSID = "Guest"
	assert.ErrorIs(t, e.Join(context.Background(), open, ""), ErrCommandOutput)
}

func TestJoinRefusesUnsafeSSID(t *testing.T) {
	exec := newFakeExecutor()
	e := newTestEngine(t, Config{}, exec)

	bad := models.NewNetworkRecord("00:00:00:00:00:04")
	bad.SSID = "evil`reboot`"
	err := e.Join(context.Background(), bad, "")
	assert.ErrorIs(t, err, ErrUnsafeValue)

	ev := next(t, e)
	assert.Equal(t, EventError, ev.Kind)

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Empty(t, exec.calls)
}

func TestJoinRefusesShellExpansions(t *testing.T) {
	tests := []struct {
		name     string
		ssid     string
		wep      bool
		password string
	}{
		{"command substitution in ssid", "$(touch /tmp/x)", false, ""},
		{"variable in ssid", "free $HOME wifi", false, ""},
		{"backslash in ssid", `cafe\`, false, ""},
		{"quote in password", "Office", false, `pa"ss`},
		{"substitution in password", "Office", false, "$(id)"},
		{"pipe in wep key", "Old", true, "abc|reboot"},
		{"space in wep key", "Old", true, "abc def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newFakeExecutor()
			e := newTestEngine(t, Config{}, exec)

			n := models.NewNetworkRecord("00:00:00:00:00:05")
			n.SSID = tt.ssid
			if tt.password != "" && !tt.wep {
				n.EncryptionAny = true
				n.EncryptionWPA2 = true
			}
			if tt.wep {
				n.EncryptionAny = true
				n.EncryptionWEP = true
			}

			err := e.Join(context.Background(), n, tt.password)
			assert.ErrorIs(t, err, ErrUnsafeValue)
			assert.Equal(t, EventError, next(t, e).Kind)

			exec.mu.Lock()
			defer exec.mu.Unlock()
			assert.Empty(t, exec.calls)
		})
	}
}

func TestJoinAcceptsWEPKey(t *testing.T) {
	exec := newFakeExecutor()
	e := newTestEngine(t, Config{}, exec)
	exec.always(statCmd, command.Result{Stdout: notConnected})

	n := models.NewNetworkRecord("00:00:00:00:00:06")
	n.SSID = "Old"
	n.EncryptionAny = true
	n.EncryptionWEP = true

	require.NoError(t, e.Join(context.Background(), n, "d:0:abcdef0123"))
	assert.Equal(t, 1, exec.called(`sudo iw wlan0 connect "Old" keys d:0:abcdef0123`))
}

func TestLeave(t *testing.T) {
	exec := newFakeExecutor()
	exec.queue(statCmd, command.Result{Stdout: officeLink}, command.Result{Stdout: notConnected})
	exec.always("sudo killall wpa_supplicant", command.Result{})
	e := newTestEngine(t, Config{}, exec)

	require.NoError(t, e.pollAndWait(context.Background()))
	assert.Equal(t, EventFormer, next(t, e).Kind)

	require.NoError(t, e.Leave(context.Background()))
	assert.Equal(t, EventLeave, next(t, e).Kind)
}

func TestLeaveFailure(t *testing.T) {
	exec := newFakeExecutor()
	exec.always("sudo killall wpa_supplicant", command.Result{Err: &command.ExitError{Code: 1}})
	exec.always(statCmd, command.Result{Stdout: notConnected})
	e := newTestEngine(t, Config{}, exec)

	require.Error(t, e.Leave(context.Background()))
	ev := next(t, e)
	assert.Equal(t, EventError, ev.Kind)
	assert.Equal(t, "There was an error when we tried to disconnect from the network", ev.Message)
}

func TestDHCP(t *testing.T) {
	exec := newFakeExecutor()
	exec.queue("sudo dhclient wlan0",
		command.Result{Stderr: "DHCPACK of 10.0.0.7 from 10.0.0.1\nleased 10.0.0.7 for 86400 seconds\n"},
		command.Result{Stderr: "No DHCPOFFERS received.\n"},
		command.Result{Err: &command.ExitError{Code: 2}},
	)
	e := newTestEngine(t, Config{}, exec)
	ctx := context.Background()

	ip, err := e.DHCP(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", ip)
	ev := next(t, e)
	assert.Equal(t, EventDHCP, ev.Kind)
	assert.Equal(t, "10.0.0.7", ev.IP)

	_, err = e.DHCP(ctx)
	assert.ErrorIs(t, err, ErrNoLease)
	assert.Equal(t, "Couldn't get an IP Address from DHCP", next(t, e).Message)

	_, err = e.DHCP(ctx)
	assert.Error(t, err)
	assert.Equal(t, EventError, next(t, e).Kind)
}

func TestDHCPStop(t *testing.T) {
	cmd := "dhclient -r wlan0; sudo killall dhclient"
	exec := newFakeExecutor()
	exec.queue(cmd, command.Result{}, command.Result{Err: &command.ExitError{Code: 1}})
	e := newTestEngine(t, Config{}, exec)

	require.NoError(t, e.DHCPStop(context.Background()))
	require.Error(t, e.DHCPStop(context.Background()))
	assert.Equal(t, EventError, next(t, e).Kind)
}

func TestEnableDisable(t *testing.T) {
	exec := newFakeExecutor()
	exec.queue("sudo ifconfig wlan0 up",
		command.Result{},
		command.Result{Err: &command.ExitError{Code: 1}, Stderr: "wlan0: ERROR while getting interface flags: No such device\n"},
		command.Result{Stdout: "SIOCSIFFLAGS: Operation not permitted\n"},
	)
	exec.queue("sudo ifconfig wlan0 down", command.Result{}, command.Result{Err: &command.ExitError{Code: 1}})
	e := newTestEngine(t, Config{}, exec)
	ctx := context.Background()

	require.NoError(t, e.Enable(ctx))

	assert.ErrorIs(t, e.Enable(ctx), ErrInterfaceMissing)
	assert.Equal(t, "The interface wlan0 does not exist.", next(t, e).Message)

	assert.ErrorIs(t, e.Enable(ctx), ErrCommandOutput)
	assert.Contains(t, next(t, e).Message, "Operation not permitted")

	require.NoError(t, e.Disable(ctx))
	require.Error(t, e.Disable(ctx))
	assert.Contains(t, next(t, e).Message, "disabling")
}

func TestSetMetricAndInterfaces(t *testing.T) {
	exec := newFakeExecutor()
	exec.always("sudo ifconfig wlan0 metric 20", command.Result{})
	exec.always("sudo iw dev", command.Result{Stdout: "phy#0\n\tInterface wlan0\n\t\tifindex 3\n"})
	e := newTestEngine(t, Config{}, exec)
	ctx := context.Background()

	require.NoError(t, e.SetMetric(ctx, 20))
	assert.Equal(t, 1, exec.called("sudo ifconfig wlan0 metric 20"))

	ifaces, err := e.Interfaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"wlan0"}, ifaces)
}

func TestOperationsAfterStop(t *testing.T) {
	e := newTestEngine(t, Config{}, newFakeExecutor())
	e.Stop()

	assert.ErrorIs(t, e.Leave(context.Background()), ErrStopped)
	_, err := e.DHCP(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, e.Join(context.Background(), wpaNetwork(), "secret"), ErrStopped)
}
