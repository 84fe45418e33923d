// Command tg-auth authenticates a telegram account and persists the
// session into the scraper's session store, so the scraper itself starts
// already authorized.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"github.com/gotd/td/session/tdesktop"
	tgclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/gotd/td/tg"
	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"

	"github.com/x5gtrn/tg-channel-scraper/internal/telegram"
)

func main() {
	sessionName := flag.String("session", "telegram_session", "session store name")
	flag.Parse()

	fmt.Println("=== telegram auth tool ===")
	fmt.Println("authenticates your account and saves the session for the scraper")
	fmt.Println()

	_ = godotenv.Load()
	reader := bufio.NewReader(os.Stdin)

	accounts := detectTData(reader)

	fmt.Println("\nchoose authentication method:")
	options := []string{"phone number (sms/app code)", "qr code (scan with the telegram app)"}
	if len(accounts) > 0 {
		options = append([]string{"telegram desktop session (recommended)"}, options...)
	}
	for i, opt := range options {
		fmt.Printf("  %d. %s\n", i+1, opt)
	}
	fmt.Print("\nenter choice [1]: ")
	line, _ := reader.ReadString('\n')
	choice, _ := strconv.Atoi(strings.TrimSpace(line))
	if choice < 1 || choice > len(options) {
		choice = 1
	}
	if len(accounts) == 0 {
		choice++ // no tdesktop option in the menu, shift to phone/qr
	}

	var err error
	if choice == 1 {
		// local import, no server round trip and no api credentials needed
		err = authWithTData(*sessionName, accounts, reader)
	} else {
		apiID, apiHash := apiCredentials(reader)
		if choice == 2 {
			err = authWithPhone(apiID, apiHash, *sessionName, reader)
		} else {
			err = authWithQR(apiID, apiHash, *sessionName)
		}
	}

	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nauthentication successful!")
	fmt.Printf("session saved to %q, the scraper will use it automatically\n", *sessionName)
	fmt.Println("keep this file secret: it provides full access to your account")
}

// apiCredentials reads api id and hash from the environment or prompts.
func apiCredentials(reader *bufio.Reader) (int, string) {
	apiIDStr := os.Getenv("TELEGRAM_API_ID")
	apiHash := os.Getenv("TELEGRAM_API_HASH")

	if apiIDStr == "" {
		fmt.Print("enter your api_id (from https://my.telegram.org): ")
		apiIDStr, _ = reader.ReadString('\n')
		apiIDStr = strings.TrimSpace(apiIDStr)
	}
	if apiHash == "" {
		fmt.Print("enter your api_hash: ")
		apiHash, _ = reader.ReadString('\n')
		apiHash = strings.TrimSpace(apiHash)
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		fmt.Printf("error: invalid api_id: %v\n", err)
		os.Exit(1)
	}

	return apiID, apiHash
}

// detectTData looks for a local Telegram Desktop installation and reads its
// accounts. Falls back to asking for a custom path when the default is
// missing; returns nil when there is nothing usable.
func detectTData(reader *bufio.Reader) []tdesktop.Account {
	path := telegramDesktopPath()
	accounts, err := tdesktop.Read(path, nil)
	if err == nil && len(accounts) > 0 {
		fmt.Printf("detected %d telegram desktop session(s) at: %s\n", len(accounts), path)
		return accounts
	}

	fmt.Printf("no telegram desktop session at the default path: %s\n", path)
	fmt.Print("enter telegram desktop path (or press enter to skip): ")
	custom, _ := reader.ReadString('\n')
	custom = strings.TrimSpace(custom)
	if custom == "" {
		return nil
	}
	if !strings.HasSuffix(custom, "tdata") {
		custom = filepath.Join(custom, "tdata")
	}

	accounts, err = tdesktop.Read(custom, nil)
	if err != nil || len(accounts) == 0 {
		fmt.Println("no usable session found there either")
		return nil
	}
	fmt.Printf("detected %d telegram desktop session(s) at: %s\n", len(accounts), custom)
	return accounts
}

// telegramDesktopPath returns the default tdata directory per platform.
func telegramDesktopPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Telegram Desktop", "tdata")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Telegram Desktop", "tdata")
	default: // linux
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "TelegramDesktop", "tdata")
	}
}

// authWithTData imports a Telegram Desktop session and seeds it into the
// scraper's store. No interaction with telegram servers is needed.
func authWithTData(sessionName string, accounts []tdesktop.Account, reader *bufio.Reader) error {
	account := accounts[0]
	if len(accounts) > 1 {
		fmt.Printf("\nfound %d accounts:\n", len(accounts))
		for i := range accounts {
			fmt.Printf("  %d. account #%d\n", i+1, i+1)
		}
		fmt.Print("\nselect account number [1]: ")
		line, _ := reader.ReadString('\n')
		if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil && n >= 1 && n <= len(accounts) {
			account = accounts[n-1]
		}
	} else {
		fmt.Println("\nusing the only available account")
	}

	data, err := session.TDesktopSession(account)
	if err != nil {
		return fmt.Errorf("convert telegram desktop session: %w", err)
	}

	return telegram.SeedSessionStore(sessionName, data)
}

// authWithPhone runs the interactive phone/code login. gotgproto prompts
// for the code (and 2FA password) on the terminal and persists the session
// straight into the sqlite store.
func authWithPhone(apiID int, apiHash, sessionName string, reader *bufio.Reader) error {
	fmt.Print("enter your phone number (with country code, e.g. +1234567890): ")
	phone, _ := reader.ReadString('\n')
	phone = strings.TrimSpace(phone)

	fmt.Println("\nauthenticating... (check telegram for the code)")

	client, err := gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(sessionName)),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return err
	}
	defer client.Stop()

	fmt.Printf("logged in as: @%s\n", client.Self.Username)
	return nil
}

// authWithQR runs the QR login flow against a raw gotd client, then seeds
// the captured session into the scraper's store.
func authWithQR(apiID int, apiHash, sessionName string) error {
	storage := &session.StorageMemory{}
	dispatcher := tg.NewUpdateDispatcher()

	client := tgclient.NewClient(apiID, apiHash, tgclient.Options{
		SessionStorage: storage,
		UpdateHandler:  &dispatcher,
	})

	var sessionData *session.Data

	err := client.Run(context.Background(), func(ctx context.Context) error {
		loggedIn := qrlogin.OnLoginToken(&dispatcher)

		_, err := client.QR().Auth(ctx, loggedIn, func(_ context.Context, token qrlogin.Token) error {
			fmt.Println("\nscan this code with telegram on your phone")
			fmt.Println("(settings -> devices -> link desktop device):")
			fmt.Println()
			qrterminal.GenerateHalfBlock(token.URL(), qrterminal.L, os.Stdout)
			return nil
		})
		if err != nil {
			return err
		}

		loader := session.Loader{Storage: storage}
		sessionData, err = loader.Load(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("qr auth: %w", err)
	}

	return telegram.SeedSessionStore(sessionName, sessionData)
}
