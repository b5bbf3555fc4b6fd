package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igvideodl/pkg/auth"
)

var loginCookiesFile string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Instagram credentials",
	Long: `Manage stored Instagram credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your credentials or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Instagram credentials securely",
	Long: `Store Instagram session cookies in the system keychain or an encrypted
file.

You will be prompted for:
  - Instagram username (if not provided)
  - Session ID (from the sessionid cookie)
  - CSRF Token (from the csrftoken cookie)
  - User Agent (optional)

To get these values:
1. Log into Instagram in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Copy the sessionid and csrftoken values

Alternatively, export your cookies to a Netscape cookie file and pass it
with --cookies-file.`,
	Example: `  # Interactive login
  igvideodl auth login myusername

  # Import a browser cookie export
  igvideodl auth login myusername --cookies-file cookies.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:     "logout <username>",
	Short:   "Remove stored credentials",
	Args:    cobra.ExactArgs(1),
	Example: `  igvideodl auth logout myusername`,
	RunE:    runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored accounts",
	Long:  `List all stored Instagram accounts with masked credential values.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	loginCmd.Flags().StringVar(&loginCookiesFile, "cookies-file", "", "Netscape cookie file to import credentials from")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	if username == "" {
		fmt.Print("Instagram username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	account := &auth.Account{Username: username}

	if loginCookiesFile != "" {
		content, err := os.ReadFile(loginCookiesFile)
		if err != nil {
			return fmt.Errorf("failed to read cookies file: %w", err)
		}

		session, err := auth.SessionFromCookies(auth.ParseNetscapeCookies(string(content)))
		if err != nil {
			return fmt.Errorf("cookies file is missing required values: %w", err)
		}

		account.SessionID = session.SessionID
		account.CSRFToken = session.CSRFToken
		account.UserAgent = session.UserAgent
	} else {
		fmt.Println("\nEnter your cookie values (they will be hidden as you type):")

		fmt.Print("sessionid cookie value: ")
		sessionID, err := readSecret(reader)
		if err != nil {
			return fmt.Errorf("failed to read session ID: %w", err)
		}
		if sessionID == "" {
			return fmt.Errorf("session ID is required")
		}

		fmt.Print("csrftoken cookie value: ")
		csrfToken, err := readSecret(reader)
		if err != nil {
			return fmt.Errorf("failed to read CSRF token: %w", err)
		}

		fmt.Print("User Agent (press Enter to use default): ")
		userAgent, _ := reader.ReadString('\n')

		account.SessionID = sessionID
		account.CSRFToken = csrfToken
		account.UserAgent = strings.TrimSpace(userAgent)
	}

	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("\nCredentials stored for account: %s\n", username)
	fmt.Println("\nDownload videos from any public profile:")
	fmt.Printf("  $ igvideodl run <instagram_username> --account %s\n", username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	username := args[0]
	if err := manager.Delete(username); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}

	fmt.Printf("Account removed: %s\n", username)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		fmt.Println("No stored accounts. Use 'igvideodl auth login' to add one.")
		return nil
	}

	fmt.Println("Stored accounts:")
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Username: %s\n", i+1, sanitized.Username)
		fmt.Printf("   Session ID: %s\n", sanitized.SessionID)
		fmt.Printf("   CSRF Token: %s\n", sanitized.CSRFToken)
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// readSecret reads a value from stdin without echoing when attached to a
// terminal
func readSecret(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
