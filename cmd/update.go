package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/autobrr/linkdupe/pkg/runtime"
)

const repository = "autobrr/linkdupe"

func UpdateCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "update",
		Short: "Update to latest version",
		Long:  `This command can be used to self-update to the latest version.`,
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// detect latest version
		fmt.Println("Checking for the latest version...")
		latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repository))
		if err != nil {
			return errors.Wrap(err, "failed determining latest available version")
		}

		// check version
		if !found || latest.LessOrEqual(runtime.Version) {
			fmt.Printf("Already using the latest version: %v\n", runtime.Version)
			return nil
		}

		// ask update
		fmt.Printf("Do you want to update to the latest version: %v? (y/n):\n", latest.Version())
		input, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil || (input != "y\n" && input != "n\n") {
			return errors.New("failed validating input")
		} else if input == "n\n" {
			return nil
		}

		// get existing executable path
		exe, err := selfupdate.ExecutablePath()
		if err != nil {
			return errors.Wrap(err, "failed locating current executable path")
		}

		if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
			return errors.Wrap(err, "failed updating existing binary to latest release")
		}

		fmt.Printf("Successfully updated to the latest version: %v\n", latest.Version())
		return nil
	}

	return command
}
