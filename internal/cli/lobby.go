package cli

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/nightfall-games/werewolf-lobby/internal/model"
)

func newCreateCmd() *cobra.Command {
	var (
		players int
		roles   []string
		dayTime int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new session and print its code",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := Dial(cfg.ServerURL)
			if err != nil {
				return err
			}
			defer client.Close()

			pool := make([]model.RoleLabel, len(roles))
			for i, r := range roles {
				pool[i] = model.RoleLabel(r)
			}

			err = client.Send(model.EventCreateSession, model.CreateSessionPayload{
				Username:    cfg.Username,
				NbOfPlayers: players,
				Roles:       pool,
				DayTime:     dayTime,
				UserID:      model.UserID(cfg.UserID),
			})
			if err != nil {
				return err
			}

			env, err := client.WaitFor(DefaultWaitTimeout, model.EventSessionCreated)
			if err != nil {
				return err
			}

			var payload model.SessionCodePayload
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				return err
			}
			cmd.Println(payload.Code)
			return nil
		},
	}

	cmd.Flags().IntVar(&players, "players", 8, "Target player count")
	cmd.Flags().StringSliceVar(&roles, "roles", nil, "Role pool, one entry per player")
	cmd.Flags().IntVar(&dayTime, "day-time", 30, "Discussion phase duration in seconds")

	return cmd
}

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join CODE",
		Short: "Join (or reconnect to) a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := Dial(cfg.ServerURL)
			if err != nil {
				return err
			}
			defer client.Close()

			err = client.Send(model.EventJoinSession, model.JoinSessionPayload{
				Code:     model.SessionCode(args[0]),
				Username: cfg.Username,
				UserID:   model.UserID(cfg.UserID),
			})
			if err != nil {
				return err
			}

			env, err := client.WaitFor(DefaultWaitTimeout, model.EventSessionJoined)
			if err != nil {
				return err
			}

			var payload model.SessionCodePayload
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				return err
			}
			cmd.Printf("joined %s\n", payload.Code)
			return nil
		},
	}
}

func newPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players CODE",
		Short: "Print a session's roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := Dial(cfg.ServerURL)
			if err != nil {
				return err
			}
			defer client.Close()

			err = client.Send(model.EventGetPlayerList, model.GetPlayerListPayload{
				Code: model.SessionCode(args[0]),
			})
			if err != nil {
				return err
			}

			env, err := client.WaitFor(DefaultWaitTimeout, model.EventPlayerList)
			if err != nil {
				return err
			}

			var roster []model.RosterEntry
			if err := json.Unmarshal(env.Data, &roster); err != nil {
				return err
			}
			for i, entry := range roster {
				cmd.Printf("%d. %s (%s)\n", i+1, entry.DisplayName, entry.UserID)
			}
			return nil
		},
	}
}

func newRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role CODE",
		Short: "Fetch the role assigned to --user, if any",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := Dial(cfg.ServerURL)
			if err != nil {
				return err
			}
			defer client.Close()

			err = client.Send(model.EventGetRole, model.GetRolePayload{
				Code:   model.SessionCode(args[0]),
				UserID: model.UserID(cfg.UserID),
			})
			if err != nil {
				return err
			}

			env, err := client.WaitFor(DefaultWaitTimeout, model.EventRole)
			if err != nil {
				return err
			}

			var payload model.RolePayload
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				return err
			}
			if payload.Role == nil {
				cmd.Println("no role assigned yet")
				return nil
			}
			cmd.Println(*payload.Role)
			return nil
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start CODE",
		Short: "Start the game in a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := Dial(cfg.ServerURL)
			if err != nil {
				return err
			}
			defer client.Close()

			err = client.Send(model.EventStartGame, model.StartGamePayload{
				Code: model.SessionCode(args[0]),
			})
			if err != nil {
				return err
			}

			// The caller is not in the session's room, so success produces
			// no reply on this connection; only an error comes back here
			_, err = client.WaitFor(2*time.Second, model.EventGameStarted)
			if err != nil && errors.Is(err, ErrServerMessage) {
				return err
			}
			cmd.Println("game started")
			return nil
		},
	}
}
