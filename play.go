package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bodul/crossgrid/internal/grid"
	"github.com/bodul/crossgrid/internal/remote"
	"github.com/bodul/crossgrid/internal/session"
	"github.com/bodul/crossgrid/internal/tui"
)

var (
	playServer string
	playPseudo string
	playShape  string
)

var playCmd = &cobra.Command{
	Use:   "play [game-id]",
	Short: "Join a game in the terminal",
	Long: `Join a game and solve it in the terminal with the other players.

With --shape, a grid is created from a text file ('#' blocked, '.' open,
a letter for a prefilled cell) and a new game is started on it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playServer, "server", "", "server URL (default play.server)")
	playCmd.Flags().StringVar(&playPseudo, "pseudo", "", "player name (default play.pseudo)")
	playCmd.Flags().StringVar(&playShape, "shape", "", "create a new game from this shape file")
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	server := firstNonEmpty(playServer, cfg.Play.Server)
	pseudo := firstNonEmpty(playPseudo, cfg.Play.Pseudo)
	if pseudo == "" {
		return errors.New("no pseudo: pass --pseudo or set play.pseudo")
	}
	client := remote.New(server, pseudo)

	var gameID string
	switch {
	case len(args) == 1:
		gameID = args[0]
	case playShape != "":
		id, err := createGame(ctx, client, playShape)
		if err != nil {
			return err
		}
		gameID = id
		fmt.Fprintf(cmd.OutOrStdout(), "created game %s\n", gameID)
	default:
		return errors.New("pass a game id or --shape")
	}

	player, err := client.Join(ctx, gameID)
	if err != nil {
		return err
	}
	// The server may have cleaned the pseudo up.
	client.Pseudo = player.Pseudo

	game, err := client.Game(ctx, gameID)
	if err != nil {
		return err
	}
	m, err := game.Model()
	if err != nil {
		return err
	}
	sess, err := session.New(m, session.WithAuthor(client.Pseudo))
	if err != nil {
		return err
	}
	for id, at := range game.Cursors {
		if id != client.Pseudo {
			sess.ApplyRemoteCursor(id, at)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, err := client.Dial(ctx, gameID, logger.Named("sync"))
	if err != nil {
		return fmt.Errorf("connect to game %s: %w", gameID, err)
	}
	defer conn.Close()
	sess.Subscribe(conn)
	conn.LocalCursorMoved(sess.Cursor().Coord)

	title := fmt.Sprintf("crossgrid · game %s · %s", gameID, client.Pseudo)
	p := tea.NewProgram(tui.New(sess, title), tea.WithAltScreen(), tea.WithMouseCellMotion())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := conn.Run(gctx, tui.Forwarder{Send: p.Send})
		if err != nil {
			logger.Warn("connection lost", zap.String("game", gameID), zap.Error(err))
		}
		p.Send(tui.DisconnectedMsg{Err: err})
		return nil
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})
	return g.Wait()
}

// createGame uploads the shape in path and starts a game on it.
func createGame(ctx context.Context, client *remote.Client, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if _, err := grid.ParseShape(string(data)); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	gridID, err := client.CreateTextGrid(ctx, string(data))
	if err != nil {
		return "", err
	}
	return client.CreateGame(ctx, gridID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
