package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/hello2himel/urochithi/internal/dashboard"
	"github.com/hello2himel/urochithi/internal/models"
	"github.com/hello2himel/urochithi/internal/session"
)

func main() {
	serverURL := flag.String("server", envOr("UROCHITHI_SERVER", "http://localhost:8080"), "API base URL")
	captchaToken := flag.String("captcha-token", os.Getenv("UROCHITHI_CAPTCHA_TOKEN"), "reCAPTCHA token for phase 1")
	logout := flag.Bool("logout", false, "clear the stored session and exit")
	watch := flag.Bool("watch", false, "stay attached and refresh until the session expires")
	flag.Parse()

	sessionPath, err := session.DefaultPath()
	if err != nil {
		fatalf("resolving session path: %v", err)
	}
	guard := session.NewGuard(sessionPath)

	if *logout {
		if err := guard.Clear(); err != nil {
			fatalf("clearing session: %v", err)
		}
		fmt.Println("Logged out.")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := dashboard.NewClient(*serverURL)

	token, err := resolveSession(ctx, guard, client, *captchaToken)
	if err != nil {
		fatalf("%v", err)
	}

	if err := showMessages(ctx, client, guard, token); err != nil {
		fatalf("%v", err)
	}

	if !*watch {
		return
	}

	expired := make(chan struct{})
	go guard.Watch(ctx, func() { close(expired) })

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-expired:
			fmt.Println("Session expired. Logged out.")
			return
		case <-ticker.C:
			if err := showMessages(ctx, client, guard, guard.Token()); err != nil {
				if errors.Is(err, models.ErrSessionExpired) {
					_ = guard.Clear()
					fmt.Println("Session expired. Logged out.")
					return
				}
				fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
			}
		}
	}
}

// resolveSession reuses a stored session when one is still valid, otherwise
// runs the interactive two-phase login.
func resolveSession(ctx context.Context, guard *session.Guard, client *dashboard.Client, captchaToken string) (string, error) {
	if state, err := guard.Load(); err == nil && state != nil {
		return state.Token, nil
	}

	flow := dashboard.NewFlow(client)
	token, err := runLogin(ctx, flow, captchaToken)
	if err != nil {
		return "", err
	}
	if err := guard.Save(token); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return token, nil
}

// runLogin drives the login state machine against the terminal. PIN input
// is never echoed. Entering "b" at the time PIN prompt returns to phase 1.
func runLogin(ctx context.Context, flow *dashboard.Flow, captchaToken string) (string, error) {
	reader := bufio.NewReader(os.Stdin)

	for flow.State() != dashboard.Authenticated {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if remaining := flow.LockedFor(); remaining > 0 {
			return "", fmt.Errorf("locked out, try again in %s", remaining.Round(time.Second))
		}

		switch flow.State() {
		case dashboard.AwaitingPhase1:
			pin, err := readSecret("Static PIN: ")
			if err != nil {
				return "", err
			}
			result, err := flow.SubmitPhase1(ctx, pin, captchaToken)
			if err != nil {
				return "", err
			}
			if !result.Valid {
				reportFailure(result)
			}

		case dashboard.AwaitingPhase2:
			fmt.Print("Time PIN (b to go back): ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return "", fmt.Errorf("reading input: %w", err)
			}
			line = strings.TrimSpace(line)
			if strings.EqualFold(line, "b") {
				flow.Back()
				continue
			}
			result, err := flow.SubmitPhase2(ctx, line)
			if err != nil {
				return "", err
			}
			if !result.Authenticated {
				reportFailure(result)
			}
		}
	}

	return flow.Token(), nil
}

func reportFailure(result *dashboard.PinResult) {
	msg := result.Error
	if msg == "" {
		msg = "Verification failed"
	}
	fmt.Println(msg)
	if result.AttemptsLeft != nil {
		fmt.Printf("Attempts left: %d\n", *result.AttemptsLeft)
	}
	if result.RetryAfter != nil {
		fmt.Printf("Retry after: %ds\n", *result.RetryAfter)
	}
}

func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading PIN: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func showMessages(ctx context.Context, client *dashboard.Client, guard *session.Guard, token string) error {
	messages, err := client.Messages(ctx, token)
	if err != nil {
		return err
	}
	guard.Touch()

	if len(messages) == 0 {
		fmt.Println("No letters yet.")
		return nil
	}

	fmt.Printf("%d letter(s):\n\n", len(messages))
	for _, msg := range messages {
		fmt.Printf("[%s] %s\n", msg.Timestamp.Local().Format("2006-01-02 15:04"), msg.Message)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
