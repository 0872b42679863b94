package hierarchy

import (
	"bytes"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"
)

const testPrefix = "/api/v1/"

// pathItems 按 GET、POST、PUT... 的顺序为每个 operationId 分配方法
func pathItems(t *testing.T, spec map[string][]string) map[string]*openapi3.PathItem {
	t.Helper()

	out := map[string]*openapi3.PathItem{}
	for template, ids := range spec {
		item := &openapi3.PathItem{}
		slots := []**openapi3.Operation{&item.Get, &item.Post, &item.Put, &item.Patch, &item.Delete, &item.Head, &item.Options}
		if len(ids) > len(slots) {
			t.Fatalf("too many operations for %s", template)
		}
		for i, id := range ids {
			*slots[i] = &openapi3.Operation{OperationID: id}
		}
		out[template] = item
	}
	return out
}

func build(t *testing.T, spec map[string][]string) (*Hierarchy, error) {
	t.Helper()
	return Build(pathItems(t, spec), Options{Prefix: testPrefix})
}

func mustBuild(t *testing.T, spec map[string][]string) *Hierarchy {
	t.Helper()
	h, err := build(t, spec)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return h
}

func TestBuildGroups(t *testing.T) {
	h := mustBuild(t, map[string][]string{
		"/api/v1/groups":      {"listGroups"},
		"/api/v1/groups/{id}": {"getGroup"},
	})

	want := map[string]*Entry{
		"groups": {
			EntityName: "group",
			Entries:    map[string]*Entry{},
			Verbs:      map[string]string{"list": "listGroups", "get": "getGroup"},
		},
	}
	if diff := cmp.Diff(want, h.Entries); diff != "" {
		t.Errorf("hierarchy mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMergesSameEntityAcrossBranches(t *testing.T) {
	h := mustBuild(t, map[string][]string{
		"/api/v1/admin/groups/{id}/members": {"addMember"},
		"/api/v1/admin/orgs/{id}/members":   {"inviteMember"},
	})

	admin, err := h.Lookup("admin")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if diff := cmp.Diff([]string{"groups"}, admin.Keys()); diff != "" {
		t.Fatalf("expected branches to collapse into one entry (-want +got):\n%s", diff)
	}

	members, err := h.Lookup("admin.groups.members")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if members.EntityName != "member" {
		t.Errorf("entity name = %q, want member", members.EntityName)
	}

	want := map[string]string{"add": "addMember", "invite": "inviteMember"}
	if diff := cmp.Diff(want, members.Verbs); diff != "" {
		t.Errorf("verbs mismatch (-want +got):\n%s", diff)
	}
}

// 顶层节点按片段原样插入，不同分支下同键子节点的实体名可以不同
func TestBuildKeepsTopLevelBranches(t *testing.T) {
	tests := []struct {
		name  string
		paths map[string][]string
		want  map[string]*Entry
	}{
		{
			name: "members",
			paths: map[string][]string{
				"/api/v1/groups/{id}/members": {"addMember"},
				"/api/v1/orgs/{id}/members":   {"addOrgMember"},
			},
			want: map[string]*Entry{
				"groups": {Entries: map[string]*Entry{
					"members": {EntityName: "member", Entries: map[string]*Entry{}, Verbs: map[string]string{"add": "addMember"}},
				}, Verbs: map[string]string{}},
				"orgs": {Entries: map[string]*Entry{
					"members": {EntityName: "orgMember", Entries: map[string]*Entry{}, Verbs: map[string]string{"add": "addOrgMember"}},
				}, Verbs: map[string]string{}},
			},
		},
		{
			name: "users",
			paths: map[string][]string{
				"/api/v1/groups/{id}/users": {"listGroupUsers"},
				"/api/v1/orgs/{id}/users":   {"listOrgUsers"},
			},
			want: map[string]*Entry{
				"groups": {Entries: map[string]*Entry{
					"users": {EntityName: "groupUsers", Entries: map[string]*Entry{}, Verbs: map[string]string{"list": "listGroupUsers"}},
				}, Verbs: map[string]string{}},
				"orgs": {Entries: map[string]*Entry{
					"users": {EntityName: "orgUsers", Entries: map[string]*Entry{}, Verbs: map[string]string{"list": "listOrgUsers"}},
				}, Verbs: map[string]string{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := mustBuild(t, tt.paths)
			if diff := cmp.Diff(tt.want, h.Entries); diff != "" {
				t.Errorf("hierarchy mismatch (-want +got):\n%s", diff)
			}
		})
	}

	h := mustBuild(t, map[string][]string{
		"/api/v1/groups/{id}/clusters": {"listClusters"},
		"/api/v1/orgs/{id}/clusters":   {"listClusters2"},
	})
	if diff := cmp.Diff([]string{"groups", "orgs"}, h.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMergesSiblingsWithSameEntity(t *testing.T) {
	forward := mustBuild(t, map[string][]string{
		"/api/v1/teams/{id}/people":  {"addWidget"},
		"/api/v1/teams/{id}/widgets": {"removeWidget"},
	})
	backward := mustBuild(t, map[string][]string{
		"/api/v1/teams/{id}/people":  {"removeWidget"},
		"/api/v1/teams/{id}/widgets": {"addWidget"},
	})

	for name, h := range map[string]*Hierarchy{"forward": forward, "backward": backward} {
		teams, err := h.Lookup("teams")
		if err != nil {
			t.Fatalf("%s: Lookup() error: %v", name, err)
		}
		if diff := cmp.Diff([]string{"people"}, teams.Keys()); diff != "" {
			t.Errorf("%s: sibling keys mismatch (-want +got):\n%s", name, diff)
		}
	}

	a, _ := forward.Lookup("teams.people")
	b, _ := backward.Lookup("teams.people")
	if diff := cmp.Diff(a.Verbs, b.Verbs); diff != "" {
		t.Errorf("merge order changed verbs (-forward +backward):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"add": "addWidget", "remove": "removeWidget"}, a.Verbs); diff != "" {
		t.Errorf("verbs mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildVerbCollision(t *testing.T) {
	h, err := build(t, map[string][]string{
		"/api/v1/x/people": {"addPerson"},
		"/api/v1/x/users":  {"addPersonNow", "getPerson"},
	})

	if !errors.Is(err, ErrVerbCollision) {
		t.Fatalf("expected verb collision, got %v", err)
	}
	if h != nil {
		t.Errorf("expected no partial hierarchy, got %v", h.Keys())
	}

	var collision *VerbCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected *VerbCollisionError, got %T", err)
	}
	if collision.Verb != "add" {
		t.Errorf("collision verb = %q, want add", collision.Verb)
	}
	if diff := cmp.Diff([]string{"x", "people"}, collision.Keys); diff != "" {
		t.Errorf("collision keys mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLocalVerbCollision(t *testing.T) {
	_, err := build(t, map[string][]string{
		"/api/v1/groups": {"listGroups", "listGroupsByName"},
	})
	if !errors.Is(err, ErrVerbCollision) {
		t.Fatalf("expected verb collision, got %v", err)
	}
}

func TestBuildSkipsPathsOutsidePrefix(t *testing.T) {
	h := mustBuild(t, map[string][]string{
		"/api/v1/groups":   {"listGroups"},
		"/internal/status": {"getStatus"},
		"/api/v1/":         {"listEverything"},
	})

	if diff := cmp.Diff([]string{"groups"}, h.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSkipsOperationsWithoutID(t *testing.T) {
	h := mustBuild(t, map[string][]string{
		"/api/v1/groups":      {"listGroups"},
		"/api/v1/unnamed":     {""},
		"/api/v1/unnamed/sub": {""},
	})

	if _, err := h.Lookup("unnamed"); err == nil {
		t.Error("expected entry without operation ids to be pruned")
	}
}

func TestBuildLogsRootOperationsAtDebug(t *testing.T) {
	paths := map[string][]string{
		"/api/v1/groups": {"listGroups"},
		"/api/v1/{id}":   {"getThing"},
	}

	for _, tt := range []struct {
		level log.Level
		want  bool
	}{
		{log.InfoLevel, false},
		{log.DebugLevel, true},
	} {
		var buf bytes.Buffer
		logger := log.NewWithOptions(&buf, log.Options{Level: tt.level})

		h, err := Build(pathItems(t, paths), Options{Prefix: testPrefix, Logger: logger})
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		if diff := cmp.Diff([]string{"groups"}, h.Keys()); diff != "" {
			t.Errorf("keys mismatch (-want +got):\n%s", diff)
		}

		got := bytes.Contains(buf.Bytes(), []byte("skip operations at the api root"))
		if got != tt.want {
			t.Errorf("level %s: logged root operations = %v, want %v\n%s", tt.level, got, tt.want, buf.String())
		}
	}
}

func TestBuildPrunesEmptyEntries(t *testing.T) {
	h := mustBuild(t, map[string][]string{
		"/api/v1/groups":              {"listGroups"},
		"/api/v1/health":              {"healthCheck"},
		"/api/v1/deep/{id}/nested":    {""},
		"/api/v1/groups/{id}/backups": {"listGroupBackups"},
	})

	err := h.Walk(func(keys []string, e *Entry) error {
		if len(e.Verbs) == 0 && len(e.Entries) == 0 {
			t.Errorf("orphan entry at %v", keys)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	if diff := cmp.Diff([]string{"groups"}, h.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildStripsAncestorEntity(t *testing.T) {
	h := mustBuild(t, map[string][]string{
		"/api/v1/groups":                {"listGroups"},
		"/api/v1/groups/{id}":           {"getGroup"},
		"/api/v1/groups/{id}/settings":  {"getGroupSettings"},
		"/api/v1/groups/{id}/clusters":  {"listGroupClusters"},
		"/api/v1/groups/{id}/clusters2": {"getGroupCluster"},
	})

	settings, err := h.Lookup("groups.settings")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if settings.EntityName != "settings" {
		t.Errorf("entity name = %q, want settings", settings.EntityName)
	}

	clusters, err := h.Lookup("groups.clusters")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if clusters.EntityName != "clusters" {
		t.Errorf("entity name = %q, want clusters", clusters.EntityName)
	}

	// 实体名不同的兄弟节点不会合并
	cluster, err := h.Lookup("group.cluster")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	want := map[string]string{"get": "getGroupCluster"}
	if diff := cmp.Diff(want, cluster.Verbs); diff != "" {
		t.Errorf("verbs mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildIgnorePatterns(t *testing.T) {
	h, err := Build(pathItems(t, map[string][]string{
		"/api/v1/groups":       {"listGroups"},
		"/api/v1/groups/{id}":  {"getGroup"},
		"/api/v1/debug/events": {"listDebugEvents"},
	}), Options{Prefix: testPrefix, IgnorePatterns: []string{`Debug`}})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if diff := cmp.Diff([]string{"groups"}, h.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	if _, err := Build(nil, Options{Prefix: testPrefix, IgnorePatterns: []string{`(`}}); err == nil {
		t.Error("expected invalid ignore pattern to fail")
	}
}

func TestBuildSeedVerbs(t *testing.T) {
	h, err := Build(pathItems(t, map[string][]string{
		"/api/v1/widgets": {"fetchWidgets", "destroyWidget"},
	}), Options{Prefix: testPrefix, SeedVerbs: []string{"fetch", "destroy"}})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := map[string]*Entry{
		"widgets": {
			EntityName: "widget",
			Entries:    map[string]*Entry{},
			Verbs:      map[string]string{"destroy": "destroyWidget", "fetch": "fetchWidgets"},
		},
	}
	if diff := cmp.Diff(want, h.Entries); diff != "" {
		t.Errorf("hierarchy mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDeterministic(t *testing.T) {
	spec := map[string][]string{
		"/api/v1/groups":                      {"listGroups", "createGroup"},
		"/api/v1/groups/{id}":                 {"getGroup", "updateGroup", "deleteGroup"},
		"/api/v1/groups/{id}/clusters":        {"listGroupClusters"},
		"/api/v1/groups/{id}/clusters/{name}": {"getGroupCluster", "pauseGroupCluster"},
		"/api/v1/orgs/{id}/members":           {"addMember"},
		"/api/v1/teams/{id}/members":          {"inviteMember"},
	}

	var outputs [][]byte
	for range 3 {
		var buf bytes.Buffer
		if err := mustBuild(t, spec).Encode(&buf); err != nil {
			t.Fatalf("Encode() error: %v", err)
		}
		outputs = append(outputs, buf.Bytes())
	}

	for i := 1; i < len(outputs); i++ {
		if !bytes.Equal(outputs[0], outputs[i]) {
			t.Fatalf("build %d differs:\n%s\n---\n%s", i, outputs[0], outputs[i])
		}
	}
}

func TestFromOpenAPI(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(`
openapi: 3.0.3
info:
  title: test
  version: "1.0"
paths:
  /api/v1/groups:
    get:
      operationId: listGroups
      responses:
        "200":
          description: ok
  /api/v1/groups/{id}:
    get:
      operationId: getGroup
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: ok
`))
	if err != nil {
		t.Fatalf("LoadFromData() error: %v", err)
	}

	h, err := FromOpenAPI(doc, Options{Prefix: testPrefix})
	if err != nil {
		t.Fatalf("FromOpenAPI() error: %v", err)
	}

	var buf bytes.Buffer
	if err := h.Encode(&buf); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := `groups:
  entity_name: group
  verbs:
    get: getGroup
    list: listGroups
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("yaml mismatch (-want +got):\n%s", diff)
	}

	if _, err := FromOpenAPI(nil, Options{}); err == nil {
		t.Error("expected nil document to fail")
	}
}

func TestVocabulary(t *testing.T) {
	res, err := Vocabulary(pathItems(t, map[string][]string{
		"/api/v1/groups/{id}/members": {"addMember"},
		"/api/v1/orgs/{id}/members":   {"inviteMember"},
		"/other/things":               {"syncThings"},
	}), Options{Prefix: testPrefix})
	if err != nil {
		t.Fatalf("Vocabulary() error: %v", err)
	}

	if diff := cmp.Diff([]string{"Member"}, res.Entities); diff != "" {
		t.Errorf("entities mismatch (-want +got):\n%s", diff)
	}
	wantVerbs := []string{"add", "create", "delete", "get", "invite", "list", "update", "upgrade", "verify"}
	if diff := cmp.Diff(wantVerbs, res.Verbs); diff != "" {
		t.Errorf("verbs mismatch (-want +got):\n%s", diff)
	}
}
