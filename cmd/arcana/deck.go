package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/arcana/internal/deck"
)

func deckFlags(cmd *cobra.Command, name, file *string) {
	cmd.Flags().StringVar(name, "deck", "major", "Embedded deck ("+strings.Join(deck.EmbeddedNames(), ", ")+")")
	cmd.Flags().StringVar(file, "deck-file", "", "YAML deck file, overrides --deck")
}

func openDeck(name, file string) (*deck.Deck, error) {
	if file != "" {
		return deck.LoadFile(file)
	}
	return deck.Embedded(name)
}

func deckCmd() *cobra.Command {
	var name, file string
	cmd := &cobra.Command{
		Use:     "deck",
		Short:   "List the cards in a deck",
		Example: "  arcana deck\n  arcana deck --deck full\n  arcana deck --deck-file ./my-deck.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeck(name, file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d cards)\n", d.Name(), d.Len())
			for i, c := range d.Cards() {
				fmt.Fprintf(out, "%3d  %-24s %s\n", i+1, c.Name, c.Image)
			}
			return nil
		},
	}
	deckFlags(cmd, &name, &file)
	return cmd
}

func drawCmd() *cobra.Command {
	var (
		name, file string
		count      int
		rounds     int
	)
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw cards locally",
		Long:  "Draw cards the way a session does. Successive rounds share one history, so no card repeats until the deck reshuffles.",
		Example: "  arcana draw\n" +
			"  arcana draw --count 3\n" +
			"  arcana draw --count 3 --rounds 10 --deck full",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeck(name, file)
			if err != nil {
				return err
			}
			if rounds < 1 {
				return fmt.Errorf("--rounds must be at least 1")
			}

			out := cmd.OutOrStdout()
			var history []string
			for r := 1; r <= rounds; r++ {
				var cards []string
				drawn, next, err := deck.Draw(d, history, count, deck.DefaultRand)
				if err != nil {
					return err
				}
				if len(next) != len(history)+count {
					fmt.Fprintln(out, "-- reshuffled --")
				}
				history = next
				for _, c := range drawn {
					cards = append(cards, c.String())
				}
				fmt.Fprintf(out, "%d: %s\n", r, strings.Join(cards, ", "))
			}
			return nil
		},
	}
	deckFlags(cmd, &name, &file)
	cmd.Flags().IntVar(&count, "count", 1, "Cards per draw")
	cmd.Flags().IntVar(&rounds, "rounds", 1, "Number of successive draws")
	return cmd
}
