package main

import (
	"context"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/user"
)

func (cli *commandLine) addUser(name, uname, role, pwd string) error {
	ctx := context.Background()
	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Role:            role,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	cli.printf("user %q (%s) created\n", usr.Username, usr.Role)
	return nil
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsername(ctx, uname)
	if err != nil {
		return err
	}
	uu := user.UpdateUser{Password: pwd, PasswordConfirm: pwd}
	if err := uu.Validate(usr, cli.validate); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}
	if _, err := cli.usrSvc.SetPassword(ctx, uname, pwd); err != nil {
		return err
	}
	cli.printf("password of %q updated\n", usr.Username)
	return nil
}
