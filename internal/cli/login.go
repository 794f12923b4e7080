package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guidelinehq/guidectl/internal/session"
)

var loginRemember bool

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Log in to the guideline backend",
	Long: `Log in to the guideline backend with your email and password.

The password is read from the terminal without echo. With --remember the
session survives reboots; without it, credentials are dropped when the
temporary directory is cleaned.

Examples:
  guidectl login analyst@example.com
  guidectl login analyst@example.com --remember`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget stored credentials",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "keep the session across restarts")
}

func runLogin(cmd *cobra.Command, args []string) error {
	var email string
	if len(args) == 1 {
		email = args[0]
	} else {
		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return errors.New("email is required")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if len(password) == 0 {
		return errors.New("password is required")
	}

	user, err := api.Login(context.Background(), email, string(password), loginRemember)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}
	fmt.Printf("Logged in as %s\n", name)
	if loginRemember {
		fmt.Println("Session will be remembered across restarts.")
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := api.Logout(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	user, err := api.CurrentUser()
	if err != nil {
		if errors.Is(err, session.ErrNotLoggedIn) {
			fmt.Println("Not logged in. Run 'guidectl login' first.")
			return nil
		}
		return err
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	return nil
}
