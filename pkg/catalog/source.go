package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"
)

// Source reads the raw character records
type Source interface {
	Load(ctx context.Context) ([]Character, error)
	Path() string
}

// Open picks a source by file extension
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return &YAMLSource{path: path}, nil
	case ".db", ".sqlite":
		return &SQLiteSource{path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported catalog file %s", path)
	}
}

// YAMLSource reads a document of the form
//
//	characters:
//	  - name: Galarzaa
//	    level: 285
//	    vocation: Royal Paladin
//	    world: Gladera
type YAMLSource struct {
	path string
}

type yamlDocument struct {
	Characters []Character `yaml:"characters"`
}

// Path returns the file path
func (s *YAMLSource) Path() string {
	return s.path
}

// Load parses the file
func (s *YAMLSource) Load(_ context.Context) ([]Character, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return doc.Characters, nil
}

// SQLiteSource reads the characters table of an SQLite database
type SQLiteSource struct {
	path string
}

const selectCharacters = `SELECT name, level, vocation, world FROM characters`

// Path returns the database path
func (s *SQLiteSource) Path() string {
	return s.path
}

// Load queries all characters
func (s *SQLiteSource) Load(ctx context.Context) ([]Character, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectCharacters)
	if err != nil {
		return nil, fmt.Errorf("failed to query characters: %w", err)
	}
	defer rows.Close()

	var chars []Character
	for rows.Next() {
		var c Character
		var vocation, world sql.NullString
		if err := rows.Scan(&c.Name, &c.Level, &vocation, &world); err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		c.Vocation = vocation.String
		c.World = world.String
		chars = append(chars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read characters: %w", err)
	}
	return chars, nil
}
