// ismp - offline inspection tooling for the ISMP verification core:
// derive parachain head storage keys, replay leaf files into an MMR to
// recover the root, and print leaf commitments.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/grandpa"
	"github.com/polytope-labs/go-ismp/log"
	"github.com/polytope-labs/go-ismp/mmr"
	"github.com/polytope-labs/go-ismp/types"
)

var (
	Version = "dev"
	Commit  = "none"
)

func parseHashKind(name string) (common.HashKind, error) {
	switch strings.ToLower(name) {
	case "keccak":
		return common.HashKeccak, nil
	case "blake2":
		return common.HashBlake2, nil
	default:
		return 0, fmt.Errorf("unknown hasher %q (want keccak or blake2)", name)
	}
}

// readLeaves reads one hex-encoded leaf per line, skipping blanks and
// '#' comment lines.
func readLeaves(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var leaves [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		leaf := common.FromHex(line)
		if len(leaf) == 0 {
			return nil, fmt.Errorf("line %d: not valid hex", lineNum)
		}
		leaves = append(leaves, leaf)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return leaves, nil
}

func buildMmr(kind common.HashKind, leaves [][]byte) (*mmr.Mmr, error) {
	m := mmr.NewMmr(kind, mmr.NewMemNodeStore(), 0)
	for i, leaf := range leaves {
		if _, err := m.Push(leaf); err != nil {
			return nil, fmt.Errorf("push leaf %d: %w", i, err)
		}
	}
	return m, nil
}

func main() {
	var rootCmd = &cobra.Command{
		Use:     "ismp",
		Short:   "ISMP offline inspection tools",
		Version: fmt.Sprintf("%s (%s)", Version, Commit),
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	log.SetLevel(slog.LevelError)

	var hasher string

	var headsKeyCmd = &cobra.Command{
		Use:   "heads-key <para-id>",
		Short: "Derive the relay chain storage key for a parachain's head",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			paraID, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid para id %q: %v\n", args[0], err)
				os.Exit(1)
			}
			fmt.Printf("0x%x\n", grandpa.ParachainHeadsKey(uint32(paraID)))
		},
	}

	var mmrRootCmd = &cobra.Command{
		Use:   "mmr-root <leaf-file>",
		Short: "Replay a leaf file into a fresh MMR and print the bagged root",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			kind, err := parseHashKind(hasher)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			leaves, err := readLeaves(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "read %s: %v\n", args[0], err)
				os.Exit(1)
			}
			m, err := buildMmr(kind, leaves)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			count, root, err := m.Finalize()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("leaves: %d\n", count)
			fmt.Printf("size:   %d\n", m.Size())
			fmt.Printf("root:   %s\n", root.Hex())
		},
	}

	var mmrDumpCmd = &cobra.Command{
		Use:   "mmr-dump <leaf-file>",
		Short: "Replay a leaf file and render the mountain structure",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			kind, err := parseHashKind(hasher)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			leaves, err := readLeaves(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "read %s: %v\n", args[0], err)
				os.Exit(1)
			}
			m, err := buildMmr(kind, leaves)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Print(m.Dump())
		},
	}

	var commitmentCmd = &cobra.Command{
		Use:   "commitment <leaf-hex>",
		Short: "Decode an encoded request/response leaf and print its commitment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			kind, err := parseHashKind(hasher)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			raw := common.FromHex(strings.TrimSpace(args[0]))
			if len(raw) == 0 {
				fmt.Fprintln(os.Stderr, "leaf is not valid hex")
				os.Exit(1)
			}
			leaf, err := types.DecodeLeaf(raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "decode leaf: %v\n", err)
				os.Exit(1)
			}
			switch {
			case leaf.Kind == types.LeafRequest && leaf.Request.Kind == types.RequestPost:
				fmt.Printf("kind:       post request (nonce %d)\n", leaf.Request.Post.Nonce)
			case leaf.Kind == types.LeafRequest:
				fmt.Printf("kind:       get request (nonce %d)\n", leaf.Request.Get.Nonce)
			default:
				fmt.Printf("kind:       response (nonce %d)\n", leaf.Response.Post.Nonce)
			}
			fmt.Printf("commitment: %s\n", leaf.Commitment(kind).Hex())
		},
	}

	for _, c := range []*cobra.Command{mmrRootCmd, mmrDumpCmd, commitmentCmd} {
		c.Flags().StringVar(&hasher, "hasher", "keccak", "leaf hasher: keccak or blake2")
	}
	rootCmd.AddCommand(headsKeyCmd, mmrRootCmd, mmrDumpCmd, commitmentCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
