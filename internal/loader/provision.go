package loader

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"bookrec/internal/storage/weaviate"
)

// SchemaClient is the schema part of the vector service client.
type SchemaClient interface {
	HasClass(ctx context.Context, name string) (bool, error)
	DeleteClass(ctx context.Context, name string) error
	CreateClass(ctx context.Context, class weaviate.Class) error
}

var skipVectorization = map[string]any{
	"text2vec-openai": map[string]any{
		"skip":                  true,
		"vectorizePropertyName": false,
	},
}

// BooksClass is the class definition: text2vec-openai (ada 002) over description and genres,
// cosine distance. bookId and title are stored but not vectorized.
func BooksClass(name string) weaviate.Class {
	return weaviate.Class{
		Class:       name,
		Description: "A collection of book titles and descriptions",
		Vectorizer:  "text2vec-openai",
		VectorIndexConfig: map[string]any{
			"distance": "cosine",
		},
		ModuleConfig: map[string]any{
			"text2vec-openai": map[string]any{
				"vectorizeClassName": false,
				"model":              "ada",
				"modelVersion":       "002",
				"type":               "text",
			},
		},
		Properties: []weaviate.Property{
			{Name: "bookId", DataType: []string{"text"}, Description: "The id of the book", ModuleConfig: skipVectorization},
			{Name: "title", DataType: []string{"text"}, Description: "The title of the book", ModuleConfig: skipVectorization},
			{Name: "description", DataType: []string{"text"}, Description: "The description of the book"},
			{Name: "genres", DataType: []string{"text"}, Description: "The genre of the book"},
		},
	}
}

// Provision makes sure the class exists. With recreate an existing class is dropped first,
// losing its objects. Without it an existing class is left untouched.
func Provision(ctx context.Context, client SchemaClient, name string, recreate bool, log *logrus.Logger) error {
	exists, err := client.HasClass(ctx, name)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if exists && !recreate {
		log.WithField("class", name).Info("schema.exists")
		return nil
	}
	if exists {
		log.WithField("class", name).Warn("schema.delete")
		if err := client.DeleteClass(ctx, name); err != nil {
			return fmt.Errorf("delete class %s: %w", name, err)
		}
	}

	if err := client.CreateClass(ctx, BooksClass(name)); err != nil {
		return fmt.Errorf("create class %s: %w", name, err)
	}
	log.WithField("class", name).Info("schema.created")
	return nil
}
