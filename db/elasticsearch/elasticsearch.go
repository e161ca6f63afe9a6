// Implements db.RecordStore and schema.Provider for Elasticsearch, with one
// index per model. Grouped aggregation queries and raw queries are not
// supported on this backend.
package elasticsearch

import (
	"github.com/elastic/go-elasticsearch/v8"
	"hermannm.dev/dashboard/config"
	"hermannm.dev/wrap"
)

type ElasticsearchDB struct {
	client *elasticsearch.TypedClient
}

func NewElasticsearchDB(config config.Elasticsearch) (ElasticsearchDB, error) {
	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses:         []string{config.Address},
		EnableDebugLogger: config.Debug,
	})
	if err != nil {
		return ElasticsearchDB{}, wrap.Error(err, "failed to connect to Elasticsearch")
	}

	return ElasticsearchDB{client: client}, nil
}
