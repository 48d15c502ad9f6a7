// Command librarympt es la CLI de operación contra el API tier.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	"github.com/kateeridumb/Library/internal/security/password"
	"github.com/kateeridumb/Library/internal/web/apiclient"
)

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

type cli struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	Timeout   time.Duration

	in     *bufio.Reader
	out    io.Writer
	prompt io.Writer
}

func (c *cli) api() *apiclient.Client {
	return apiclient.New(c.BaseURL, &http.Client{Timeout: c.Timeout})
}

func (c *cli) print(v any, text string) {
	if c.OutFormat == "json" {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(c.out, string(p))
		return
	}
	fmt.Fprintln(c.out, text)
}

// prompt recibe los prompts interactivos; out solo la salida.
func newRootCmd(in io.Reader, out, prompt io.Writer) *cobra.Command {
	c := &cli{
		BaseURL:   envOr("LIBRARY_API_URL", "http://localhost:8081"),
		OutFormat: envOr("LIBRARY_OUT", "text"),
		Timeout:   15 * time.Second,
		in:        bufio.NewReader(in),
		out:       out,
		prompt:    prompt,
	}

	root := &cobra.Command{
		Use:           "librarympt",
		Short:         "CLI de operación para el API de LibraryMPT (/account/*)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.BaseURL, "api-url", c.BaseURL, "URL base del API tier (env LIBRARY_API_URL)")
	root.PersistentFlags().StringVar(&c.OutFormat, "out", c.OutFormat, "Formato de salida: json|text")
	root.PersistentFlags().DurationVar(&c.Timeout, "timeout", c.Timeout, "Timeout por request")

	root.AddCommand(c.pingCmd(), c.rolesCmd(), c.loginCmd(), c.registerCmd(), c.hashCmd())
	return root
}

func (c *cli) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Consulta /healthz del API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.api().Ping(cmd.Context()); err != nil {
				return fmt.Errorf("ping fallo: %w", err)
			}
			c.print(map[string]bool{"ok": true}, "ok")
			return nil
		},
	}
}

func (c *cli) rolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "Lista los roles del credential store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			roles, err := c.api().Roles(cmd.Context())
			if err != nil {
				return err
			}
			var b strings.Builder
			for i, r := range roles {
				if i > 0 {
					b.WriteByte('\n')
				}
				fmt.Fprintf(&b, "%d\t%s", r.ID, r.Name)
			}
			c.print(roles, b.String())
			return nil
		},
	}
}

// loginCmd verifica credenciales; no completa el 2FA (eso es del web tier).
func (c *cli) loginCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verifica usuario y contraseña contra el API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if username == "" {
				if username, err = promptText(c.in, c.prompt, "Username"); err != nil {
					return err
				}
			}
			pwd, err := promptPassword(c.prompt, "Password")
			if err != nil {
				return err
			}
			res, err := c.api().Login(cmd.Context(), username, pwd)
			if err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Error)
			}
			res.TwoFactorToken = ""
			text := fmt.Sprintf("ok user_id=%d role=%s", res.UserID, res.RoleName)
			if res.RequiresTwoFactor {
				text += " (2fa required)"
			}
			c.print(res, text)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username (si falta se pregunta)")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var in dto.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Crea una cuenta con el rol por defecto (Student)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Username == "" || in.Email == "" || in.FirstName == "" || in.LastName == "" {
				return errors.New("--username, --email, --first-name y --last-name son requeridos")
			}
			pwd, err := promptPassword(c.prompt, "Password")
			if err != nil {
				return err
			}
			confirm, err := promptPassword(c.prompt, "Confirm password")
			if err != nil {
				return err
			}
			if pwd != confirm {
				return errors.New("las contraseñas no coinciden")
			}
			in.Password = pwd

			res, err := c.api().Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Message)
			}
			c.print(res, "registered "+in.Username)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Username, "username", "", "Username")
	f.StringVar(&in.Email, "email", "", "Email")
	f.StringVar(&in.FirstName, "first-name", "", "Nombre")
	f.StringVar(&in.LastName, "last-name", "", "Apellido")
	return cmd
}

// hashCmd genera hash+salt en el formato del store, para altas manuales.
func (c *cli) hashCmd() *cobra.Command {
	var minLen int
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Genera password_hash y password_salt (argon2id) sin llamar al API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(c.prompt, "Password")
			if err != nil {
				return err
			}
			policy := password.Policy{MinLength: minLen, RequireUpper: true, RequireLower: true, RequireDigit: true}
			if ok, reasons := policy.Validate(pwd); !ok {
				return fmt.Errorf("password rechazada: %s", strings.Join(reasons, "; "))
			}
			hash, salt, err := password.NewHasher(password.Default, false).CreateCredential(pwd)
			if err != nil {
				return err
			}
			c.print(map[string]string{"password_hash": hash, "password_salt": salt},
				"password_hash="+hash+"\npassword_salt="+salt)
			return nil
		},
	}
	cmd.Flags().IntVar(&minLen, "min-length", 12, "Largo mínimo exigido")
	return cmd
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
