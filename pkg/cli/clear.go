package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/everlift-app/everlift/pkg/cli/config"
	"github.com/everlift-app/everlift/pkg/domain/types"
	"github.com/everlift-app/everlift/pkg/utils/logging"
)

func cmdClear() *cli.Command {
	var userID string
	var confirm bool
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user-id",
			Usage:       "User whose stored state should be wiped",
			Required:    true,
			Destination: &userID,
		},
		&cli.BoolFlag{
			Name:        "confirm",
			Usage:       "Actually delete; without this flag the command only reports what would be removed",
			Destination: &confirm,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "clear",
		Usage: "Wipe a user's confidence records, plans and transcripts from the durable store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			uid := types.UserID(userID)
			plans, err := repo.Plans().List(ctx, uid)
			if err != nil {
				return goerr.Wrap(err, "failed to list plans", goerr.V("user_id", userID))
			}
			logging.Default().Info("User state", "user_id", userID, "plans", len(plans))

			if !confirm {
				logging.Default().Info("Dry run, pass --confirm to delete")
				return nil
			}

			if err := repo.ClearUser(ctx, uid); err != nil {
				return goerr.Wrap(err, "failed to clear user state", goerr.V("user_id", userID))
			}
			logging.Default().Info("Cleared user state", "user_id", userID)
			return nil
		},
	}
}
