// Command hash-generator prints bcrypt hashes for seeding users directly
// into the database.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/taskboard/internal/service"
	"github.com/phrazzld/taskboard/internal/service/auth"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var cost int

var rootCmd = &cobra.Command{
	Use:   "hash-generator [PASSWORD...]",
	Short: "Print bcrypt hashes for the given passwords",
	Long: `Print one bcrypt hash per password. With no arguments, passwords are read
from stdin, one per line.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		passwords := args
		if len(passwords) == 0 {
			var err error
			if passwords, err = readLines(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		return writeHashes(cmd.OutOrStdout(), auth.NewBcrypt(cost), passwords)
	},
}

func init() {
	rootCmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read passwords: %w", err)
	}
	return lines, nil
}

// writeHashes hashes each password. Passwords the API would reject are
// reported and skipped.
func writeHashes(w io.Writer, hasher auth.PasswordHasher, passwords []string) error {
	for _, password := range passwords {
		n := utf8.RuneCountInString(password)
		if n < service.MinPasswordLength || n > service.MaxPasswordLength || len(password) > service.MaxPasswordLength {
			fmt.Fprintf(w, "skipped: password must be %d to %d characters and at most %d bytes\n",
				service.MinPasswordLength, service.MaxPasswordLength, service.MaxPasswordLength)
			continue
		}
		hash, err := hasher.Hash(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, hash)
	}
	return nil
}
