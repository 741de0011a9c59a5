// Command roomresq is a terminal client for the complaint service.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/auth"
	"roomresq/backend/internal/client"
	"roomresq/backend/internal/complaint"
	"roomresq/backend/internal/dashboard"
	"roomresq/backend/internal/models"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

const usageText = `Usage: roomresq <command> [args]

  register <email> <name> [--staff] [--room ROOM]
  verify <email> <code>
  login <email>
  logout
  whoami
  profile [--name NAME] [--room ROOM]
  submit --category C --title T --description D --room R --slot S [--priority P]
  mine
  unassigned
  assigned [staff_id]
  claim <complaint_id>
  assign <complaint_id> <staff_id>
  status <complaint_id> <status> [--comment TEXT] [--override]
  history <complaint_id>
  dashboard [--view assigned|unassigned] [--status S] [--q TEXT] [--sort newest|urgency]
            (students get their own dashboard; --view applies to staff)

Passwords are read from ROOMRESQ_PASSWORD or prompted for.`

var errUsage = errors.New("usage")

func sessionPath() string {
	if p := os.Getenv("ROOMRESQ_SESSION"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".roomresq-session.json"
	}
	return filepath.Join(home, ".roomresq", "session.json")
}

// readPassword prefers ROOMRESQ_PASSWORD, then prompts with echo disabled.
func readPassword(in io.Reader) (string, error) {
	if p := os.Getenv("ROOMRESQ_PASSWORD"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if f, ok := in.(*os.File); ok && f == os.Stdin && term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type app struct {
	Client *client.Client
	In     io.Reader
	Out    io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "verify":
		if len(rest) != 2 {
			return errUsage
		}
		resp, err := a.Client.Verify(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Verified. Signed in as %s (%s).\n", resp.Name, strings.Join(resp.Roles, ", "))
		return nil
	case "login":
		if len(rest) != 1 {
			return errUsage
		}
		password, err := readPassword(a.In)
		if err != nil {
			return err
		}
		resp, err := a.Client.Login(ctx, rest[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Signed in as %s (%s).\n", resp.Name, strings.Join(resp.Roles, ", "))
		return nil
	case "logout":
		err := a.Client.Logout(ctx)
		fmt.Fprintln(a.Out, "Signed out.")
		return err
	case "whoami":
		snap := a.Client.Session.Snapshot()
		if snap.AccessToken == "" {
			return apperr.Authentication("not logged in")
		}
		id := snap.Identity
		fmt.Fprintf(a.Out, "%s <%s> %s", id.Name, id.Email, strings.Join(id.Roles, ","))
		if id.RoomNo != "" {
			fmt.Fprintf(a.Out, " room %s", id.RoomNo)
		}
		fmt.Fprintln(a.Out)
		return nil
	case "profile":
		return a.profile(ctx, rest)
	case "submit":
		return a.submit(ctx, rest)
	case "mine":
		list, err := a.Client.MyComplaints(ctx)
		a.printComplaints(list)
		return err
	case "unassigned":
		list, err := a.Client.Unassigned(ctx)
		a.printComplaints(list)
		return err
	case "assigned":
		staffID := ""
		if len(rest) > 0 {
			staffID = rest[0]
		}
		list, err := a.Client.AssignedTo(ctx, staffID)
		a.printComplaints(list)
		return err
	case "claim", "assign":
		if (cmd == "claim" && len(rest) != 1) || (cmd == "assign" && len(rest) != 2) {
			return errUsage
		}
		staffID := ""
		if cmd == "assign" {
			staffID = rest[1]
		}
		c, err := a.Client.Assign(ctx, rest[0], staffID)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Complaint %s assigned to %s.\n", c.ID, deref(c.AssignedStaffID))
		return nil
	case "status":
		return a.status(ctx, rest)
	case "history":
		if len(rest) != 1 {
			return errUsage
		}
		history, err := a.Client.History(ctx, rest[0])
		a.printHistory(history)
		return err
	case "dashboard":
		return a.dashboard(ctx, rest)
	}
	return errUsage
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	staff := fs.Bool("staff", false, "request the staff role")
	room := fs.String("room", "", "room number")
	if len(args) < 2 {
		return errUsage
	}
	if err := fs.Parse(args[2:]); err != nil {
		return errUsage
	}
	password, err := readPassword(a.In)
	if err != nil {
		return err
	}
	role := string(models.RoleStudent)
	if *staff {
		role = string(models.RoleStaff)
	}
	req := auth.RegisterRequest{
		Email:      args[0],
		Name:       args[1],
		Password:   password,
		Roles:      []string{role},
		RoomNumber: *room,
	}
	if err := a.Client.Register(ctx, req); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Verification code sent to %s. Run: roomresq verify %s <code>\n", args[0], args[0])
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "display name")
	room := fs.String("room", "", "room number")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var (
		u   *models.User
		err error
	)
	if *name == "" && *room == "" {
		u, err = a.Client.Profile(ctx)
	} else {
		u, err = a.Client.UpdateProfile(ctx, auth.ProfileUpdate{DisplayName: *name, RoomNumber: *room})
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s <%s> %s", u.DisplayName, u.Email, strings.Join(u.Roles, ","))
	if u.RoomNumber != "" {
		fmt.Fprintf(a.Out, " room %s", u.RoomNumber)
	}
	fmt.Fprintln(a.Out)
	return nil
}

func (a *app) submit(ctx context.Context, args []string) error {
	var d complaint.NewComplaintDraft
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&d.Category, "category", "", "")
	fs.StringVar(&d.Title, "title", "", "")
	fs.StringVar(&d.Description, "description", "", "")
	fs.StringVar(&d.RoomNumber, "room", a.Client.Session.Snapshot().Identity.RoomNo, "")
	fs.StringVar(&d.TimeSlot, "slot", "", "")
	fs.StringVar(&d.Priority, "priority", "", "")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	c, err := a.Client.Submit(ctx, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Complaint %s submitted (%s, %s).\n", c.ID, c.Category, c.Priority)
	return nil
}

func (a *app) status(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	var upd complaint.StatusUpdate
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&upd.Comment, "comment", "", "")
	fs.BoolVar(&upd.Override, "override", false, "")
	if err := fs.Parse(args[2:]); err != nil {
		return errUsage
	}
	upd.Status = args[1]
	c, err := a.Client.UpdateStatus(ctx, args[0], upd)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Complaint %s is now %s.\n", c.ID, c.Status)
	return nil
}

// dashboard shows the student view or the staff view, by the signed-in role.
func (a *app) dashboard(ctx context.Context, args []string) error {
	var q dashboard.Query
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	view := fs.String("view", dashboard.ViewAssigned, "")
	fs.StringVar(&q.Status, "status", "", "")
	fs.StringVar(&q.Search, "q", "", "")
	fs.StringVar(&q.Sort, "sort", "", "")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if !isStaff(a.Client.Session.Snapshot().Identity.Roles) {
		d, err := a.Client.StudentDashboard(ctx, q)
		if err != nil {
			return err
		}
		a.printStats("Mine", d.Stats)
		a.printComplaints(d.Complaints)
		return nil
	}

	d, err := a.Client.StaffDashboard(ctx, *view, q)
	if err != nil {
		return err
	}
	a.printStats("Assigned", d.Stats)
	a.printComplaints(d.Complaints)
	return nil
}

func isStaff(roles []string) bool {
	for _, r := range roles {
		if role, ok := models.ParseRole(r); ok && role == models.RoleStaff {
			return true
		}
	}
	return false
}

func (a *app) printStats(label string, st dashboard.Stats) {
	fmt.Fprintf(a.Out, "%s: %d total, %d submitted, %d in progress, %d resolved, %d closed\n",
		label, st.Total, st.Submitted, st.InProgress, st.Resolved, st.Closed)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func (a *app) printComplaints(list []models.Complaint) {
	if len(list) == 0 {
		fmt.Fprintln(a.Out, "No complaints.")
		return
	}
	w := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tCATEGORY\tROOM\tTITLE\tASSIGNED\tCREATED")
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Status, c.Priority, c.Category, c.RoomNumber, c.Title,
			deref(c.AssignedStaffID), c.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func (a *app) printHistory(history []models.ComplaintHistory) {
	if len(history) == 0 {
		fmt.Fprintln(a.Out, "No history.")
		return
	}
	w := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tBY\tFROM\tTO\tCOMMENT")
	for _, h := range history {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			h.CreatedAt.Local().Format("2006-01-02 15:04"), h.ChangedBy, h.PreviousStatus, h.NewStatus, deref(h.Comment))
	}
	w.Flush()
}

func main() {
	_ = godotenv.Load()
	log.SetFlags(0)

	path := sessionPath()
	session, err := client.LoadSession(path)
	if err != nil {
		log.Printf("WARNING: Ignoring unreadable session %s: %v", path, err)
		session = client.NewSession()
	}
	baseURL := os.Getenv("ROOMRESQ_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	a := &app{Client: client.New(baseURL, session), In: os.Stdin, Out: os.Stdout}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	runErr := a.run(ctx, os.Args[1:])
	if err := session.Save(path); err != nil {
		log.Printf("WARNING: Could not save session: %v", err)
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, errUsage):
		fmt.Fprintln(os.Stderr, usageText)
		os.Exit(2)
	case apperr.IsRetryable(runErr):
		fmt.Fprintf(os.Stderr, "Server unavailable, try again: %v\n", runErr)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
