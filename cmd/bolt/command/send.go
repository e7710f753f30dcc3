package command

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sendTopic string

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Publish a message through the HTTP trigger",
}

var sendPoolAttachCmd = &cobra.Command{
	Use:   "pool-attach",
	Short: "Publish a subscription-manager attach command",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := PoolAttachRequest{Topic: sendTopic}
		if cmd.Flags().Changed("pool") {
			pool, _ := cmd.Flags().GetString("pool")
			req.PoolID = &pool
		}
		return report(NewHTTPClient(apiURL).Send("/publish/pool-attach", req))
	},
}

var sendRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Publish a subscription-manager register command",
	Long: `Publish a subscription-manager register command. Only the flags that are
given become options, so --password "" sends an empty password while leaving
the flag out sends none.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := RegisterRequest{
			Topic:         sendTopic,
			Username:      flagIfChanged(cmd, "username"),
			Password:      flagIfChanged(cmd, "password"),
			Environment:   flagIfChanged(cmd, "environment"),
			ActivationKey: flagIfChanged(cmd, "activation-key"),
		}
		return report(NewHTTPClient(apiURL).Send("/publish/subscription-register", req))
	},
}

var sendHeartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Publish a heartbeat now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return report(NewHTTPClient(apiURL).Send("/publish/heartbeat", struct{}{}))
	},
}

func flagIfChanged(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func report(resp *PublishResponse, err error) error {
	if err != nil {
		return err
	}
	color.Green("✓ Published %s on %q", resp.Message, resp.Topic)
	return nil
}

func init() {
	sendCmd.PersistentFlags().StringVar(&sendTopic, "topic", "commands", "topic to publish on")

	sendPoolAttachCmd.Flags().String("pool", "", "pool id to attach")

	sendRegisterCmd.Flags().String("username", "", "account username")
	sendRegisterCmd.Flags().String("password", "", "account password")
	sendRegisterCmd.Flags().String("environment", "", "registration environment")
	sendRegisterCmd.Flags().String("activation-key", "", "activation key")

	sendCmd.AddCommand(sendPoolAttachCmd)
	sendCmd.AddCommand(sendRegisterCmd)
	sendCmd.AddCommand(sendHeartbeatCmd)
}

