// Command hashpw prints the bcrypt hash to put in ADMIN_PASSWORD_HASH.
//
//	hashpw 'my admin password'
//	echo 'my admin password' | hashpw
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/sakif/snippet-vault/internal/auth"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatalf("hashpw: %v", err)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("hashpw", flag.ContinueOnError)
	fs.SetOutput(out)
	cost := fs.Int("cost", auth.DefaultCost, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var password string
	switch fs.NArg() {
	case 0:
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	case 1:
		password = fs.Arg(0)
	default:
		return errors.New("expected at most one argument; quote passwords with spaces")
	}

	hash, err := auth.NewPasswordService(*cost).Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}
