package cmd_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tasktree/cmd/tasktree/cmd"
	"tasktree/internal/testutil"
)

// =============================================================================
// Task lifecycle
// =============================================================================

func TestAddTaskCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	out := cli.MustExecute("add", "Write", "report")

	testutil.AssertContains(t, out, "Created task 1: [ ] #1 Write report (30pt, due 2024-03-10) {マイタスク}")
	testutil.AssertResultCode(t, out, testutil.ResultActionCompleted)
}

func TestAddTaskQuickMarkersCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("tag", "add", "work")

	out := cli.MustExecute("add", "Weekly review !50 @2024-03-12 #work *weekly")

	testutil.AssertContains(t, out, "#1 Weekly review (50pt, due 2024-03-12) {work} ↻weekly")
}

func TestAddTaskFlagsOverrideMarkersCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	out := cli.MustExecute("add", "Stretch !50", "--score", "10", "--due", "+1w", "--recur", "monthly")

	testutil.AssertContains(t, out, "#1 Stretch (10pt, due 2024-03-17) {マイタスク} ↻monthly")
}

func TestAddTaskUnknownTagFallsBackCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	out := cli.MustExecute("add", "Deploy #ops")

	testutil.AssertContains(t, out, "{マイタスク}")
	testutil.AssertNotContains(t, out, "{ops}")
}

func TestAddTaskValidationCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	_, stderr := cli.ExecuteAndFail("add")
	testutil.AssertContains(t, stderr, "task title is empty")

	_, stderr = cli.ExecuteAndFail("add", "x", "--score", "-5")
	testutil.AssertContains(t, stderr, "invalid score: -5")

	_, stderr = cli.ExecuteAndFail("add", "x", "--due", "someday")
	testutil.AssertContains(t, stderr, "invalid date: someday")

	_, stderr = cli.ExecuteAndFail("add", "x", "--recur", "daily")
	testutil.AssertContains(t, stderr, "invalid recurrence: daily")
}

func TestAddTaskInteractiveCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.SetPrompt("Buy milk\n\n50\ntomorrow\n\n\n")

	out := cli.MustExecute("add")

	testutil.AssertContains(t, out, "Title (required): ")
	testutil.AssertContains(t, out, "Created task 1: [ ] #1 Buy milk (50pt, due 2024-03-11) {マイタスク}")
}

func TestAddSubtaskTreeCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Move house")
	cli.MustExecute("add", "Pack books", "--parent", "1")
	cli.MustExecute("add", "Pack kitchen", "--parent", "1")
	cli.MustExecute("add", "Buy tape", "--parent", "3")

	out := cli.MustExecute("show")

	testutil.AssertContains(t, out, "Tasks (2024-03-10)")
	testutil.AssertContains(t, out, "  [ ] #1 Move house")
	// Siblings with the same due date list the newest first.
	testutil.AssertContains(t, out, "  ├─ [ ] #3 Pack kitchen")
	testutil.AssertContains(t, out, "  │  └─ [ ] #4 Buy tape")
	testutil.AssertContains(t, out, "  └─ [ ] #2 Pack books")
	testutil.AssertResultCode(t, out, testutil.ResultInfoOnly)
}

func TestAddMissingParentGoesTopLevelCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout, stderr, code := cli.Execute("add", "Orphan", "--parent", "9")

	testutil.AssertExitCode(t, code, 0)
	testutil.AssertContains(t, stdout, "Created task 1")
	testutil.AssertContains(t, stderr, "added at the top level")

	out := cli.MustExecute("show")
	testutil.AssertContains(t, out, "  [ ] #1 Orphan")
}

func TestShowEmptyCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	out := cli.MustExecute("show")

	testutil.AssertContains(t, out, "No active tasks")
	testutil.AssertContains(t, out, "Score: today 0, yesterday 0")
}

func TestShowOverdueCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Late report", "--due", "2024-03-01")
	cli.MustExecute("add", "Fresh task")

	out := cli.MustExecute("show")

	testutil.AssertContains(t, out, "Overdue (1)")
	testutil.AssertContains(t, out, "#1 Late report (30pt, due 2024-03-01) {マイタスク} OVERDUE")
	testutil.AssertNotContains(t, out, "#2 Fresh task (30pt, due 2024-03-10) {マイタスク} OVERDUE")
}

func TestShowFilterByTagCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("tag", "add", "work")
	cli.MustExecute("add", "Project")
	cli.MustExecute("add", "Slides #work", "--parent", "1")
	cli.MustExecute("add", "Laundry")

	out := cli.MustExecute("show", "--tag", "work")

	testutil.AssertContains(t, out, "#1 Project")
	testutil.AssertContains(t, out, "#2 Slides")
	testutil.AssertNotContains(t, out, "#3 Laundry")
}

func TestDoneTaskCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Write report !40")

	out := cli.MustExecute("done", "1")
	testutil.AssertContains(t, out, "Completed task 1: Write report (+40pt)")
	testutil.AssertNotContains(t, out, "Next occurrence")
	testutil.AssertResultCode(t, out, testutil.ResultActionCompleted)

	out = cli.MustExecute("done", "1")
	testutil.AssertContains(t, out, "Task 1 is already completed")
	testutil.AssertResultCode(t, out, testutil.ResultInfoOnly)

	out = cli.MustExecute("show", "--recent")
	testutil.AssertContains(t, out, "No active tasks")
	testutil.AssertContains(t, out, "Score: today 40")
	testutil.AssertContains(t, out, "[x] #1 Write report")
}

func TestDoneWeeklyCreatesSuccessorCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Weekly review *weekly")

	out := cli.MustExecute("done", "1")

	testutil.AssertContains(t, out, "Next occurrence: #2 due 2024-03-17")
	show := cli.MustExecute("show")
	testutil.AssertContains(t, show, "  [ ] #2 Weekly review (30pt, due 2024-03-17) {マイタスク} ↻weekly")
}

func TestDoneMonthlyClampsToMonthEndCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Pay rent *monthly @2024-01-31")

	out := cli.MustExecute("done", "1")

	testutil.AssertContains(t, out, "Next occurrence: #2 due 2024-02-29")
}

func TestDoneRecurringSubtaskKeepsParentCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Area")
	cli.MustExecute("add", "Clean desk *weekly", "--parent", "1")

	out := cli.MustExecute("done", "2")
	testutil.AssertContains(t, out, "Next occurrence: #3 due 2024-03-17")

	show := cli.MustExecute("show")
	testutil.AssertContains(t, show, "  └─ [ ] #3 Clean desk")
}

func TestDoneErrorsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout, stderr := cli.ExecuteAndFail("done", "99")
	testutil.AssertContains(t, stderr, "task not found: 99")
	testutil.AssertResultCode(t, stdout, testutil.ResultError)

	_, stderr = cli.ExecuteAndFail("done", "abc")
	testutil.AssertContains(t, stderr, "invalid task id")

	_, stderr = cli.ExecuteAndFail("done")
	testutil.AssertContains(t, stderr, "task id is required")
}

func TestUndoTaskCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Write report")

	out := cli.MustExecute("undo", "1")
	testutil.AssertContains(t, out, "Task 1 is not completed")
	testutil.AssertResultCode(t, out, testutil.ResultInfoOnly)

	cli.MustExecute("done", "1")
	out = cli.MustExecute("undo", "1")
	testutil.AssertContains(t, out, "Reopened task 1: Write report")

	show := cli.MustExecute("show")
	testutil.AssertContains(t, show, "  [ ] #1 Write report")
	testutil.AssertContains(t, show, "Score: today 0")
}

func TestUndoMostRecentWithoutIDCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "First")
	cli.MustExecute("add", "Second")
	cli.MustExecute("done", "1")
	cli.AdvanceDays(1)
	cli.MustExecute("done", "2")

	out := cli.MustExecute("undo")

	testutil.AssertContains(t, out, "Reopened task 2: Second")
}

func TestUndoRecurringKeepsSuccessorCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Water plants *weekly")
	cli.MustExecute("done", "1")

	cli.MustExecute("undo", "1")

	show := cli.MustExecute("show")
	testutil.AssertContains(t, show, "#1 Water plants")
	testutil.AssertContains(t, show, "#2 Water plants")
}

func TestRescheduleTaskCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Dentist")

	out := cli.MustExecute("reschedule", "1", "tomorrow")
	testutil.AssertContains(t, out, "Rescheduled task 1 to 2024-03-11 (score 60)")

	out = cli.MustExecute("reschedule", "1", "2024-04-01")
	testutil.AssertContains(t, out, "Rescheduled task 1 to 2024-04-01 (score 90)")
}

func TestRescheduleErrorsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Dentist")
	cli.MustExecute("done", "1")

	_, stderr := cli.ExecuteAndFail("reschedule", "1", "tomorrow")
	testutil.AssertContains(t, stderr, "completed")

	_, stderr = cli.ExecuteAndFail("reschedule", "7", "tomorrow")
	testutil.AssertContains(t, stderr, "task not found: 7")
}

func TestUpdateTaskCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("tag", "add", "home")
	cli.MustExecute("add", "Garden")
	cli.MustExecute("add", "Weeding")

	out := cli.MustExecute("update", "2", "--parent", "1", "--tag", "home")
	testutil.AssertContains(t, out, "Updated task 2: tag home, parent #1")

	out = cli.MustExecute("update", "2", "--no-parent")
	testutil.AssertContains(t, out, "Updated task 2: tag home, parent top level")

	_, stderr := cli.ExecuteAndFail("update", "2")
	testutil.AssertContains(t, stderr, "nothing to update")
}

func TestUpdateCycleFallsBackToTopLevelCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Parent")
	cli.MustExecute("add", "Child", "--parent", "1")

	out := cli.MustExecute("update", "1", "--parent", "2")

	testutil.AssertContains(t, out, "Task 1 unchanged")
	testutil.AssertResultCode(t, out, testutil.ResultInfoOnly)
	show := cli.MustExecute("show")
	testutil.AssertContains(t, show, "  └─ [ ] #2 Child")
}

func TestDeleteTaskCascadesCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Trip")
	cli.MustExecute("add", "Book hotel", "--parent", "1")
	cli.MustExecute("add", "Pay deposit", "--parent", "2")
	cli.MustExecute("add", "Unrelated")

	out := cli.MustExecute("delete", "1")

	testutil.AssertContains(t, out, "Deleted 3 task(s): #1, #2, #3")
	show := cli.MustExecute("show")
	testutil.AssertContains(t, show, "#4 Unrelated")
	testutil.AssertNotContains(t, show, "Book hotel")

	if n := cli.QueryInt("SELECT COUNT(*) FROM tasks"); n != 1 {
		t.Errorf("expected 1 task left in the database, got %d", n)
	}
}

func TestDeleteTaskCancelledCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Keep me")
	cli.SetPrompt("n\n")

	out := cli.MustExecute("delete", "1")

	testutil.AssertContains(t, out, `Delete task 1 "Keep me" and all of its subtasks? (y/n): `)
	testutil.AssertContains(t, out, "Cancelled")
	if n := cli.QueryInt("SELECT COUNT(*) FROM tasks"); n != 1 {
		t.Errorf("expected task to survive, got %d rows", n)
	}
}

// =============================================================================
// Tags and keyword rules
// =============================================================================

func TestTagCommandsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	out := cli.MustExecute("tag", "add", "work")
	testutil.AssertContains(t, out, "Added tag work")

	out = cli.MustExecute("tag", "add", "work")
	testutil.AssertContains(t, out, "Tag work already exists")

	out = cli.MustExecute("tag", "list")
	testutil.AssertContains(t, out, "マイタスク (default)")
	testutil.AssertContains(t, out, "work")

	cli.MustExecute("add", "Deploy #work")
	out = cli.MustExecute("tag", "delete", "work")
	testutil.AssertContains(t, out, "Deleted tag work (1 task(s) moved to マイタスク)")

	show := cli.MustExecute("show")
	testutil.AssertContains(t, show, "#1 Deploy (30pt, due 2024-03-10) {マイタスク}")
}

func TestTagDeleteErrorsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	_, stderr := cli.ExecuteAndFail("tag", "delete", "マイタスク")
	testutil.AssertContains(t, stderr, "default tag")

	_, stderr = cli.ExecuteAndFail("tag", "delete", "nope")
	testutil.AssertContains(t, stderr, "tag not found: nope")
}

func TestKeywordRulesAutoTagCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.WriteRules("rules:\n  - tag: health\n    keywords: [gym, run]\n  - tag: work\n    keywords: [report]\n")

	out := cli.MustExecute("add", "Go to the GYM")
	testutil.AssertContains(t, out, "{health}")

	out = cli.MustExecute("add", "Quarterly report")
	testutil.AssertContains(t, out, "{work}")

	out = cli.MustExecute("tag", "list")
	testutil.AssertContains(t, out, "health")
	testutil.AssertContains(t, out, "work")
}

func TestKeywordRulesDoNotOverrideExplicitTagCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.WriteRules("rules:\n  - tag: health\n    keywords: [gym]\n")
	cli.MustExecute("tag", "add", "errands")

	out := cli.MustExecute("add", "Renew gym card #errands")

	testutil.AssertContains(t, out, "{errands}")
}

func TestRulesImportIntoSQLiteCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	src := filepath.Join(cli.TmpDir(), "import.yaml")
	if err := os.WriteFile(src, []byte("rules:\n  - tag: health\n    keywords: [gym]\n  - tag: work\n    keywords: [report, meeting]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out := cli.MustExecute("rules", "import", src)
	testutil.AssertContains(t, out, "Imported 2 rule(s) into sqlite")
	testutil.AssertNotContains(t, out, "takes precedence")
	testutil.AssertResultCode(t, out, testutil.ResultActionCompleted)

	// No rules.yaml exists, so the stored rules apply.
	out = cli.MustExecute("add", "Go to the GYM")
	testutil.AssertContains(t, out, "{health}")

	out = cli.MustExecute("rules", "list")
	testutil.AssertContains(t, out, "health: gym")
	testutil.AssertContains(t, out, "work: report, meeting")
	testutil.AssertResultCode(t, out, testutil.ResultInfoOnly)
}

func TestRulesFileOverridesImportedRulesCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.WriteRules("rules:\n  - tag: errands\n    keywords: [gym]\n")
	src := filepath.Join(cli.TmpDir(), "import.yaml")
	if err := os.WriteFile(src, []byte("rules:\n  - tag: health\n    keywords: [gym]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out := cli.MustExecute("rules", "import", src)
	testutil.AssertContains(t, out, "takes precedence")

	out = cli.MustExecute("add", "Renew gym card")
	testutil.AssertContains(t, out, "{errands}")
}

func TestRulesImportErrorsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	bad := filepath.Join(cli.TmpDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("rules: foo\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, stderr := cli.ExecuteAndFail("rules", "import", bad)
	testutil.AssertContains(t, stderr, "rules.Parse")

	_, stderr = cli.ExecuteAndFail("rules", "import", filepath.Join(cli.TmpDir(), "missing.yaml"))
	testutil.AssertContains(t, stderr, "failed to read rules file")

	good := filepath.Join(cli.TmpDir(), "good.yaml")
	if err := os.WriteFile(good, []byte("rules:\n  - tag: health\n    keywords: [gym]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, stderr = cli.ExecuteAndFail("rules", "import", good, "--backend", "memory")
	testutil.AssertContains(t, stderr, "does not store keyword rules")
}

// =============================================================================
// Output formats
// =============================================================================

func TestJSONOutputCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	out := cli.MustExecute("add", "Water plants *weekly", "--json")

	var added struct {
		Action string `json:"action"`
		Task   struct {
			ID      int    `json:"id"`
			Title   string `json:"title"`
			DueDate string `json:"due_date"`
			Recur   string `json:"recur"`
		} `json:"task"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &added); err != nil {
		t.Fatalf("add output is not JSON: %v\n%s", err, out)
	}
	if added.Action != "add" || added.Task.ID != 1 || added.Task.Title != "Water plants" || added.Task.Recur != "weekly" {
		t.Errorf("unexpected add response: %+v", added)
	}
	if added.Result != testutil.ResultActionCompleted {
		t.Errorf("result = %q, want %q", added.Result, testutil.ResultActionCompleted)
	}

	out = cli.MustExecute("done", "1", "--json")
	var completed struct {
		Action    string `json:"action"`
		Successor *int   `json:"successor_id"`
	}
	if err := json.Unmarshal([]byte(out), &completed); err != nil {
		t.Fatalf("done output is not JSON: %v\n%s", err, out)
	}
	if completed.Successor == nil || *completed.Successor != 2 {
		t.Errorf("successor_id = %v, want 2", completed.Successor)
	}

	out = cli.MustExecute("show", "--json")
	var dash struct {
		Today string `json:"today"`
		Tree  []struct {
			ID       int    `json:"id"`
			DueDate  string `json:"due_date"`
			ParentID *int   `json:"parent_id"`
		} `json:"tree"`
		Recent []struct {
			ID int `json:"id"`
		} `json:"recent"`
	}
	if err := json.Unmarshal([]byte(out), &dash); err != nil {
		t.Fatalf("show output is not JSON: %v\n%s", err, out)
	}
	if len(dash.Tree) != 1 || dash.Tree[0].ID != 2 {
		t.Fatalf("tree = %+v, want only task 2", dash.Tree)
	}
	if dash.Today != "2024-03-10" {
		t.Errorf("today = %q, want 2024-03-10", dash.Today)
	}
	if dash.Tree[0].DueDate != "2024-03-17" {
		t.Errorf("successor due_date = %q, want 2024-03-17", dash.Tree[0].DueDate)
	}
	if dash.Tree[0].ParentID != nil {
		t.Errorf("parent_id = %v, want null", *dash.Tree[0].ParentID)
	}
	if len(dash.Recent) != 1 || dash.Recent[0].ID != 1 {
		t.Errorf("recent = %+v, want task 1", dash.Recent)
	}
}

func TestJSONOutputFromConfigCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.SetConfigValue("output_format", "json")

	out := cli.MustExecute("tag", "list")

	testutil.AssertContains(t, out, `"default_tag":"マイタスク"`)
	testutil.AssertNotContains(t, out, cmd.ResultInfoOnly+"\n")
}

func TestExportCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Write report")
	cli.MustExecute("add", "Outline", "--parent", "1")

	out := cli.MustExecute("export")
	testutil.AssertContains(t, out, "# Tasks (2024-03-10)")
	testutil.AssertContains(t, out, "Write report")
	testutil.AssertContains(t, out, "Outline")

	target := filepath.Join(cli.TmpDir(), "out", "tasks.md")
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		t.Fatal(err)
	}
	out = cli.MustExecute("export", "-o", target)
	testutil.AssertContains(t, out, "Exported to "+target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Tasks (2024-03-10)") {
		t.Errorf("unexpected export content:\n%s", data)
	}
}

// =============================================================================
// Backends and configuration
// =============================================================================

func TestFileBackendCLI(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "csv")
	cli := testutil.NewCLITestWithConfig(t, "default_backend: file\nbackends:\n  file:\n    dir: "+dir+"\nanalytics:\n  enabled: false\n")

	cli.MustExecute("add", "Stored in CSV")
	out := cli.MustExecute("show")

	testutil.AssertContains(t, out, "#1 Stored in CSV")
	if _, err := os.Stat(filepath.Join(dir, "tasks.csv")); err != nil {
		t.Errorf("tasks.csv not written: %v", err)
	}
}

func TestAutoDetectFileBackendCLI(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "csv")
	cli := testutil.NewCLITestWithConfig(t, "default_backend: file\nbackends:\n  file:\n    dir: "+dir+"\nanalytics:\n  enabled: false\n")
	cli.MustExecute("add", "Legacy task")

	cli.SetFullConfig("default_backend: sqlite\nauto_detect_backend: true\nbackends:\n  file:\n    dir: " + dir + "\nanalytics:\n  enabled: false\n")
	out := cli.MustExecute("show")

	testutil.AssertContains(t, out, "#1 Legacy task")
}

func TestMemoryBackendFlagCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	out := cli.MustExecute("add", "Ephemeral", "--backend", "memory")
	testutil.AssertContains(t, out, "Created task 1")

	out = cli.MustExecute("show", "--backend", "memory")
	testutil.AssertContains(t, out, "No active tasks")
	out = cli.MustExecute("show")
	testutil.AssertContains(t, out, "No active tasks")
}

func TestUnconfiguredBackendCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	_, stderr := cli.ExecuteAndFail("show", "--backend", "postgres")

	testutil.AssertContains(t, stderr, "backends.postgres.dsn")
}

func TestInvalidBackendCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	_, stderr := cli.ExecuteAndFail("show", "--backend", "carrier-pigeon")

	testutil.AssertContains(t, stderr, "carrier-pigeon")
}

func TestCustomDefaultTagCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.SetConfigValue("default_tag", "inbox")

	out := cli.MustExecute("add", "Sort mail")

	testutil.AssertContains(t, out, "{inbox}")
}

func TestAnalyticsCLI(t *testing.T) {
	cli := testutil.NewCLITestWithConfig(t, "default_backend: sqlite\nanalytics:\n  enabled: true\n")
	t.Setenv("TASKTREE_ANALYTICS_ENABLED", "")

	cli.MustExecute("add", "Tracked")
	cli.MustExecute("add", "Tracked again")
	cli.ExecuteAndFail("done", "42")

	out := cli.MustExecute("analytics")

	testutil.AssertContains(t, out, "COMMAND")
	testutil.AssertContains(t, out, "add")
	testutil.AssertContains(t, out, "done")
	testutil.AssertResultCode(t, out, testutil.ResultInfoOnly)

	out = cli.MustExecute("analytics", "cleanup", "--days", "30")
	testutil.AssertContains(t, out, "Removed 0 event(s) older than 30 days")
}
