package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/portfolio/internal/db"
	"github.com/spf13/cobra"
)

var (
	userName     string
	userPassword string
)

// userCmd 管理后台账号
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage admin accounts",
}

// userCreateCmd 创建一个 bcrypt 加密的管理员账号
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVarP(&userName, "username", "u", "", "admin username")
	userCreateCmd.Flags().StringVarP(&userPassword, "password", "p", "", "admin password")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	_, logger, gdb, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer db.Close(gdb)

	if err := db.CreateUser(gdb, userName, userPassword); err != nil {
		if errors.Is(err, db.ErrUserExists) {
			return fmt.Errorf("user %q already exists", strings.TrimSpace(userName))
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created admin user %s\n", strings.TrimSpace(userName))
	return nil
}
