// df11check validates DF11 container files and verifies they decode.
//
// Usage:
//
//	df11check [-q|--quiet] <filename> [<filename> ...]
//
// Options:
//
//	-q, --quiet   Only output errors. Exit code indicates pass/fail.
//	-h, --help    Show this help message.
//	--version     Show version information.
//
// Exit codes:
//
//	0: All files valid
//	1: One or more files invalid
//	2: Error (file not found, etc.)
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mrjoshuak/go-dfloat11/container"
	"github.com/mrjoshuak/go-dfloat11/df11"
)

const version = "1.0.0"

// CheckResult holds the outcome of validating one container file.
type CheckResult struct {
	Filename   string
	Elements   int
	Partitions int
	LUTs       int
	FileBytes  int64
	CodedBytes int
	Err        error
}

// Ratio returns the compression ratio against raw bfloat16 storage.
func (r *CheckResult) Ratio() float64 {
	if r.Elements == 0 {
		return 0
	}
	raw := float64(r.Elements) * 2
	packed := float64(r.CodedBytes + r.Elements)
	return packed / raw
}

func main() {
	quiet := false
	files := []string{}

	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch arg {
		case "-q", "--quiet":
			quiet = true
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		case "--version":
			fmt.Printf("df11check version %s\n", version)
			fmt.Println("Part of go-dfloat11 - Pure Go DFloat11 codec")
			fmt.Println("https://github.com/mrjoshuak/go-dfloat11")
			os.Exit(0)
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
				printUsage()
				os.Exit(2)
			}
			files = append(files, arg)
		}
	}

	if len(files) == 0 {
		printUsage()
		os.Exit(2)
	}

	anyInvalid := false
	for _, filename := range files {
		result, fatal := checkFile(filename)
		if fatal != nil {
			fmt.Fprintf(os.Stderr, "df11check: %v\n", fatal)
			os.Exit(2)
		}
		if result.Err != nil {
			anyInvalid = true
			fmt.Fprintf(os.Stderr, "%s: INVALID: %v\n", filename, result.Err)
			continue
		}
		if !quiet {
			printResult(result)
		}
	}

	if anyInvalid {
		os.Exit(1)
	}
}

// checkFile parses and fully decodes one container file. The second return
// value is non-nil only for I/O level problems (file missing, unreadable).
func checkFile(filename string) (*CheckResult, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	result := &CheckResult{Filename: filename, FileBytes: stat.Size()}

	c, err := container.Read(f)
	if err != nil {
		result.Err = err
		return result, nil
	}

	result.Elements = c.NumElements()
	result.Partitions = c.NumPartitions()
	result.LUTs = c.NLUTs
	result.CodedBytes = len(c.Codes)

	dst := make([]uint16, c.NumElements())
	if err := df11.Decode(dst, c); err != nil {
		result.Err = err
		return result, nil
	}

	return result, nil
}

func printResult(r *CheckResult) {
	fmt.Printf("%s: OK\n", r.Filename)
	fmt.Printf("  elements:    %d\n", r.Elements)
	fmt.Printf("  partitions:  %d\n", r.Partitions)
	fmt.Printf("  luts:        %d\n", r.LUTs)
	fmt.Printf("  file size:   %d bytes\n", r.FileBytes)
	fmt.Printf("  exponent stream: %d bytes\n", r.CodedBytes)
	if r.Elements > 0 {
		fmt.Printf("  effective bits/value: %.2f\n", r.Ratio()*16)
	}
}

func printUsage() {
	fmt.Println("Usage: df11check [-q|--quiet] <filename> [<filename> ...]")
	fmt.Println()
	fmt.Println("Validates DF11 container files and verifies they decode.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -q, --quiet   Only output errors. Exit code indicates pass/fail.")
	fmt.Println("  -h, --help    Show this help message.")
	fmt.Println("  --version     Show version information.")
}
