// Command queuectl talks to a running queue server from a terminal.
//
//	queuectl [--server URL] [--username U] [--password P] <command>
//
// Commands:
//
//	signup    create the teacher account
//	teachers  list registered teacher usernames
//	next      log in, call the next number, log out
//	waiting   log in, print the waiting list, log out
package main

import (
	"classroom/take-a-number/queue-server/pkg/infra"
	"classroom/take-a-number/queue-server/pkg/msg"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/imroc/req/v3"
	"github.com/spf13/pflag"
)

type options struct {
	server   string
	username string
	password string
	debug    bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options

	flagSet := pflag.NewFlagSet("queuectl", pflag.ContinueOnError)
	flagSet.StringVar(&opts.server, "server", "http://localhost:3000", "queue server base URL")
	flagSet.StringVarP(&opts.username, "username", "u", os.Getenv("QUEUE_TEACHER"), "teacher username")
	flagSet.StringVarP(&opts.password, "password", "p", os.Getenv("QUEUE_PASSWORD"), "teacher password")
	flagSet.BoolVar(&opts.debug, "debug", false, "dump every request and response")
	flagSet.Usage = func() { printHelp(flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		printHelp(flagSet)
		return errors.New("expected exactly one command")
	}

	client := infra.NewHttpClient(opts.server, opts.debug)
	switch rest[0] {
	case "signup":
		return signup(client, &opts)
	case "teachers":
		return listTeachers(client)
	case "next":
		return withTeacherSession(client, &opts, next)
	case "waiting":
		return withTeacherSession(client, &opts, waiting)
	default:
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `queuectl: operate a take-a-number queue server.

Usage:
  queuectl [flags] <signup|teachers|next|waiting>

Flags:
%s`, flagSet.FlagUsages())
}

// check turns a transport failure or a {success:false} reply into an error.
func check(resp *req.Response, err error, result *msg.Response, failure *msg.Response) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		if failure.Code != "" {
			return fmt.Errorf("%v: %v", failure.Code, failure.Message)
		}
		return fmt.Errorf("request failed with status[%v]", resp.Status)
	}
	if result != nil && !result.Success {
		return fmt.Errorf("%v: %v", result.Code, result.Message)
	}
	return nil
}

func credentials(opts *options) (*msg.TeacherCredentialRequest, error) {
	if opts.username == "" || opts.password == "" {
		return nil, errors.New("--username and --password are required")
	}
	return &msg.TeacherCredentialRequest{Username: opts.username, Password: opts.password}, nil
}

func signup(client *req.Client, opts *options) error {
	body, err := credentials(opts)
	if err != nil {
		return err
	}

	result, failure := &msg.Response{}, &msg.Response{}
	resp, err := client.R().
		SetBody(body).
		SetResult(result).
		SetError(failure).
		Post("/teacher/signup")
	if err := check(resp, err, result, failure); err != nil {
		return err
	}

	fmt.Printf("created teacher %v\n", opts.username)
	return nil
}

func listTeachers(client *req.Client) error {
	result, failure := &msg.TeacherListResponse{}, &msg.Response{}
	resp, err := client.R().
		SetResult(result).
		SetError(failure).
		Get("/teacher/list")
	if err := check(resp, err, &result.Response, failure); err != nil {
		return err
	}

	for _, teacher := range result.Teachers {
		fmt.Println(teacher.Username)
	}
	return nil
}

// withTeacherSession logs in, runs fn and logs out again. The session
// cookie lives in the client's jar.
func withTeacherSession(client *req.Client, opts *options, fn func(client *req.Client) error) error {
	body, err := credentials(opts)
	if err != nil {
		return err
	}

	result, failure := &msg.LoginResponse{}, &msg.Response{}
	resp, err := client.R().
		SetBody(body).
		SetResult(result).
		SetError(failure).
		Post("/teacher/login")
	if err := check(resp, err, &result.Response, failure); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	defer func() {
		if _, err := client.R().Post("/teacher/logout"); err != nil {
			fmt.Fprintf(os.Stderr, "logout failed: %v\n", err)
		}
	}()

	return fn(client)
}

func next(client *req.Client) error {
	result, failure := &msg.ProgressResponse{}, &msg.Response{}
	resp, err := client.R().
		// Calling next twice skips a student, so never retry it.
		SetRetryCount(0).
		SetResult(result).
		SetError(failure).
		Post("/teacher/next")
	if err := check(resp, err, &result.Response, failure); err != nil {
		return err
	}

	fmt.Printf("now serving %d of %d\n", result.CurrentNum, result.LastNum)
	return nil
}

func waiting(client *req.Client) error {
	result, failure := &msg.WaitingListResponse{}, &msg.Response{}
	resp, err := client.R().
		SetResult(result).
		SetError(failure).
		Get("/teacher/waiting-list")
	if err := check(resp, err, &result.Response, failure); err != nil {
		return err
	}

	if result.CurrentStudent != nil {
		fmt.Printf("serving  #%-4d %v\n", result.CurrentStudent.Number, result.CurrentStudent.Name)
	} else {
		fmt.Printf("serving  #%-4d\n", result.CurrentNum)
	}
	for _, ticket := range result.WaitingList {
		fmt.Printf("waiting  #%-4d %v\n", ticket.Number, ticket.Name)
	}
	for _, entry := range result.LostFocusStudents {
		number := "-"
		if entry.Number != nil {
			number = fmt.Sprint(*entry.Number)
		}
		fmt.Printf("away     #%-4v %v %v\n", number, entry.Name, entry.Reason)
	}
	fmt.Printf("last issued %d, average wait %v\n", result.LastNum, time.Duration(result.AvgWaitMsec)*time.Millisecond)
	return nil
}
