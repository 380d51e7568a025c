package command

import (
	"log"
)

// WithCommandLogger wraps a command to log its execution
func WithCommandLogger() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				// Run the actual command first
				err := cmd.Run(ctx)

				// Then try to log its execution
				if v, ok := ctx.(*SlashInteractionContext); ok {
					member := v.Event.Member
					if member == nil || v.Storage == nil {
						return err
					}
					user := member.User
					guildID := v.Event.GuildID
					channelID := v.Event.ChannelID
					if e := LogCommand(v.Session, v.Storage, guildID, channelID, user.ID, user.Username, cmd.Name()); e != nil {
						log.Printf("[WARN] Failed to log command /%s: %v", cmd.Name(), e)
					}
				}

				return err
			},
		}
	}
}
