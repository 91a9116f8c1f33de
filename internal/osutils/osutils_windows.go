//go:build windows

// Package osutils holds platform checks for the service process.
package osutils

import (
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

const firewallRule = "KeyboardSim API"

// IsAdmin checks if the current process has administrative privileges
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	if err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token); err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}

// InjectionWarning reports why keystrokes may not reach some windows.
// SendInput from a non-elevated process is dropped by elevated targets.
func InjectionWarning() string {
	if IsAdmin() {
		return ""
	}
	return "process is not elevated; keystrokes into elevated windows will be dropped"
}

// EnsureFirewallRule opens the API port for inbound TCP, requesting UAC
// elevation when the process is not already elevated.
func EnsureFirewallRule(port int) error {
	log.Printf("Firewall: Checking rule '%s' on port %d...", firewallRule, port)

	out, err := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+firewallRule).CombinedOutput()
	if err == nil && strings.Contains(string(out), strconv.Itoa(port)) && strings.Contains(string(out), "Allow") {
		log.Printf("Firewall: Rule '%s' already allows port %d", firewallRule, port)
		return nil
	}

	psCommand := fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%s' -ErrorAction SilentlyContinue; New-NetFirewallRule -DisplayName '%s' -Direction Inbound -LocalPort %d -Protocol TCP -Action Allow -Profile Private",
		firewallRule, firewallRule, port,
	)

	if IsAdmin() {
		if out, err := exec.Command("powershell", "-NoProfile", "-Command", psCommand).CombinedOutput(); err != nil {
			return fmt.Errorf("failed to create firewall rule: %w (Output: %s)", err, string(out))
		}
		log.Printf("Firewall: Applied rule for port %d", port)
		return nil
	}

	log.Println("Firewall: Process is not elevated. Requesting UAC elevation...")
	verbPtr, _ := syscall.UTF16PtrFromString("runas")
	exePtr, _ := syscall.UTF16PtrFromString("powershell.exe")
	argPtr, _ := syscall.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", psCommand))
	if err := windows.ShellExecute(0, verbPtr, exePtr, argPtr, nil, 0); err != nil {
		return fmt.Errorf("failed to launch elevated powershell: %w", err)
	}
	log.Println("Firewall: UAC prompt requested")
	return nil
}
