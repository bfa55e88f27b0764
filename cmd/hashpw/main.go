// Command hashpw prints an Argon2id PHC string for LOCKER_RESET_PASSWORD_HASH.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/tus-lockers/locker-backend/internal/auth"
)

var (
	memory     = pflag.Uint32("memory", auth.DefaultArgon2Params.Memory, "Argon2 memory in KiB")
	iterations = pflag.Uint32("time", auth.DefaultArgon2Params.Time, "Argon2 iterations")
	threads    = pflag.Uint8("threads", auth.DefaultArgon2Params.Threads, "Argon2 parallelism")
)

func main() {
	pflag.Parse()

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		fmt.Fprintf(os.Stderr, "ERROR: read password: %v\n", err)
		os.Exit(1)
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		fmt.Fprintln(os.Stderr, "ERROR: empty password")
		os.Exit(1)
	}

	p := auth.DefaultArgon2Params
	p.Memory, p.Time, p.Threads = *memory, *iterations, *threads
	hash, err := auth.HashPHC(password, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
