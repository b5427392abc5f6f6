package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"taskdeck/internal/authstate"
	"taskdeck/internal/gateway"
	"taskdeck/internal/taskstate"
	"taskdeck/internal/transcript"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) error
	Signup(ctx context.Context, email, password string) error
	Logout()
	Snapshot() authstate.State
}

type TaskService interface {
	Fetch(ctx context.Context) error
	Create(ctx context.Context, title, description string) (gateway.Task, error)
	Update(ctx context.Context, taskID int64, title, description string) (gateway.Task, error)
	Delete(ctx context.Context, taskID int64) error
	ToggleCompletion(ctx context.Context, taskID int64) (gateway.Task, error)
	SetFilter(f taskstate.Filter)
	Filtered() []gateway.Task
}

type ChatService interface {
	Send(ctx context.Context, userID int64, message, conversationID string) (gateway.SendMessageResponse, error)
	History(userID int64, conversationID string) ([]transcript.Message, error)
}

type Deps struct {
	Auth  AuthService
	Tasks TaskService
	Chat  ChatService
	Serve func(context.Context) error
	Out   io.Writer
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:  "taskdeck",
		Usage: "todo list client",
		Action: func(ctx *cli.Context) error {
			return runServe(ctx.Context, deps)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the local API server",
				Action: func(ctx *cli.Context) error {
					return runServe(ctx.Context, deps)
				},
			},
			{
				Name:  "login",
				Usage: "sign in to the backend",
				Flags: credentialFlags(),
				Action: func(ctx *cli.Context) error {
					return runLogin(ctx, deps)
				},
			},
			{
				Name:  "signup",
				Usage: "create an account and sign in",
				Flags: credentialFlags(),
				Action: func(ctx *cli.Context) error {
					return runSignup(ctx, deps)
				},
			},
			{
				Name:  "logout",
				Usage: "drop the stored session",
				Action: func(ctx *cli.Context) error {
					deps.Auth.Logout()
					fmt.Fprintln(deps.Out, "Logged out.")
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "show the signed-in user",
				Action: func(ctx *cli.Context) error {
					return runWhoami(deps)
				},
			},
			{
				Name:  "tasks",
				Usage: "manage tasks",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list tasks",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "filter", Usage: "all, active or completed", Value: "all"},
						},
						Action: func(ctx *cli.Context) error {
							return runTaskList(ctx, deps)
						},
					},
					{
						Name:      "add",
						Usage:     "create a task",
						ArgsUsage: "<title>",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "desc", Usage: "task description"},
						},
						Action: func(ctx *cli.Context) error {
							return runTaskAdd(ctx, deps)
						},
					},
					{
						Name:      "done",
						Usage:     "toggle a task's completion",
						ArgsUsage: "<id>",
						Action: func(ctx *cli.Context) error {
							return runTaskDone(ctx, deps)
						},
					},
					{
						Name:      "rm",
						Usage:     "delete a task",
						ArgsUsage: "<id>",
						Action: func(ctx *cli.Context) error {
							return runTaskRemove(ctx, deps)
						},
					},
					{
						Name:      "update",
						Usage:     "replace a task's title and description",
						ArgsUsage: "<id>",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "title", Usage: "new title", Required: true},
							&cli.StringFlag{Name: "desc", Usage: "new description"},
						},
						Action: func(ctx *cli.Context) error {
							return runTaskUpdate(ctx, deps)
						},
					},
				},
			},
			{
				Name:      "chat",
				Usage:     "send a chat message",
				ArgsUsage: "<message>",
				Action: func(ctx *cli.Context) error {
					return runChat(ctx, deps)
				},
				Subcommands: []*cli.Command{
					{
						Name:  "history",
						Usage: "show the current conversation transcript",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "conversation", Usage: "conversation id, defaults to the latest"},
						},
						Action: func(ctx *cli.Context) error {
							return runChatHistory(ctx, deps)
						},
					},
				},
			},
		},
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "email", Usage: "account email", Required: true},
		&cli.StringFlag{Name: "password", Usage: "account password", Required: true},
	}
}

func runServe(ctx context.Context, deps Deps) error {
	if deps.Serve == nil {
		return errors.New("serve runner is not configured")
	}
	return deps.Serve(ctx)
}

func runLogin(ctx *cli.Context, deps Deps) error {
	if err := deps.Auth.Login(ctx.Context, ctx.String("email"), ctx.String("password")); err != nil {
		return fmt.Errorf("login failed: %s", deps.Auth.Snapshot().Err)
	}
	st := deps.Auth.Snapshot()
	fmt.Fprintf(deps.Out, "Signed in as %s.\n", st.CurrentUser.Email)
	return nil
}

func runSignup(ctx *cli.Context, deps Deps) error {
	if err := deps.Auth.Signup(ctx.Context, ctx.String("email"), ctx.String("password")); err != nil {
		return fmt.Errorf("signup failed: %s", deps.Auth.Snapshot().Err)
	}
	st := deps.Auth.Snapshot()
	fmt.Fprintf(deps.Out, "Account created. Signed in as %s.\n", st.CurrentUser.Email)
	return nil
}

func runWhoami(deps Deps) error {
	st := deps.Auth.Snapshot()
	if !st.IsAuthenticated() {
		fmt.Fprintln(deps.Out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(deps.Out, "%s (%s, id %d)\n", st.CurrentUser.Username, st.CurrentUser.Email, st.CurrentUser.ID)
	return nil
}

func runTaskList(ctx *cli.Context, deps Deps) error {
	deps.Tasks.SetFilter(taskstate.Filter(ctx.String("filter")))
	if err := deps.Tasks.Fetch(ctx.Context); err != nil {
		return err
	}
	tasks := deps.Tasks.Filtered()
	if len(tasks) == 0 {
		fmt.Fprintln(deps.Out, "No tasks.")
		return nil
	}
	fmt.Fprint(deps.Out, RenderTasks(tasks))
	return nil
}

func runTaskAdd(ctx *cli.Context, deps Deps) error {
	title := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
	if title == "" {
		return errors.New("usage: taskdeck tasks add <title>")
	}
	task, err := deps.Tasks.Create(ctx.Context, title, ctx.String("desc"))
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "Created task %d: %s\n", task.ID, task.Title)
	return nil
}

func runTaskDone(ctx *cli.Context, deps Deps) error {
	taskID, err := parseTaskID(ctx)
	if err != nil {
		return err
	}
	task, err := deps.Tasks.ToggleCompletion(ctx.Context, taskID)
	if err != nil {
		return err
	}
	state := "open"
	if task.Completed {
		state = "completed"
	}
	fmt.Fprintf(deps.Out, "Task %d is now %s.\n", task.ID, state)
	return nil
}

func runTaskRemove(ctx *cli.Context, deps Deps) error {
	taskID, err := parseTaskID(ctx)
	if err != nil {
		return err
	}
	if err := deps.Tasks.Delete(ctx.Context, taskID); err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "Deleted task %d.\n", taskID)
	return nil
}

func runTaskUpdate(ctx *cli.Context, deps Deps) error {
	taskID, err := parseTaskID(ctx)
	if err != nil {
		return err
	}
	task, err := deps.Tasks.Update(ctx.Context, taskID, ctx.String("title"), ctx.String("desc"))
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "Updated task %d: %s\n", task.ID, task.Title)
	return nil
}

func runChat(ctx *cli.Context, deps Deps) error {
	message := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
	if message == "" {
		return errors.New("usage: taskdeck chat <message>")
	}
	st := deps.Auth.Snapshot()
	if !st.IsAuthenticated() {
		return errors.New("sign in first: taskdeck login --email ... --password ...")
	}
	resp, err := deps.Chat.Send(ctx.Context, st.CurrentUser.ID, message, "")
	if err != nil {
		return err
	}
	fmt.Fprintln(deps.Out, resp.AIResponse)
	return nil
}

func runChatHistory(ctx *cli.Context, deps Deps) error {
	st := deps.Auth.Snapshot()
	if !st.IsAuthenticated() {
		return errors.New("sign in first: taskdeck login --email ... --password ...")
	}
	msgs, err := deps.Chat.History(st.CurrentUser.ID, ctx.String("conversation"))
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(deps.Out, "No chat history.")
		return nil
	}
	for _, m := range msgs {
		who := "you"
		if m.SenderType == transcript.SenderAI {
			who = "taskdeck"
		}
		fmt.Fprintf(deps.Out, "[%s] %s: %s\n", m.Timestamp, who, m.Content)
	}
	return nil
}

func parseTaskID(ctx *cli.Context) (int64, error) {
	raw := ctx.Args().First()
	taskID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || taskID <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return taskID, nil
}

// RenderTasks prints one task per line with a checkbox marker.
func RenderTasks(tasks []gateway.Task) string {
	var b strings.Builder
	for _, t := range tasks {
		marker := "[ ]"
		if t.Completed {
			marker = "[x]"
		}
		fmt.Fprintf(&b, "%s %d  %s", marker, t.ID, t.Title)
		if t.Description != "" {
			fmt.Fprintf(&b, " (%s)", t.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
