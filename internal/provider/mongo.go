package provider

import (
	"context"
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nexusdb/nexusdb/internal/instance"
)

const (
	mongoImage    = "mongo:7"
	mongoPort     = 27017
	mongoDataPath = "/data/db"
)

// MongoDBProvider provisions dedicated MongoDB containers and proxies
// commands to them.
//
// MongoDB offers no per-database login separation at this layer: the root
// credential supplied to the container is the instance credential. This is
// a narrower trust model than the relational engines, where bootstrap runs
// under a separate, discarded admin credential.
type MongoDBProvider struct {
	dockerLifecycle
}

var _ Provider = (*MongoDBProvider)(nil)

// NewMongoDBProvider creates a MongoDB provider.
func NewMongoDBProvider(opts Options) *MongoDBProvider {
	return &MongoDBProvider{dockerLifecycle{opts: opts}}
}

func (p *MongoDBProvider) Engine() string { return EngineMongoDB }

// CreateContainer provisions the container with the instance credential as
// the root user. No further bootstrap is needed; readiness is a ping.
func (p *MongoDBProvider) CreateContainer(ctx context.Context, inst *instance.Instance, password string) error {
	env := []string{
		"MONGO_INITDB_ROOT_USERNAME=" + inst.Username,
		"MONGO_INITDB_ROOT_PASSWORD=" + password,
	}

	probe := func(ctx context.Context) error {
		return p.ping(ctx, inst, password)
	}

	return provision(ctx, p.opts, inst, mongoImage, mongoPort, mongoDataPath, env, nil, probe)
}

func (p *MongoDBProvider) uri(inst *instance.Instance, password string) string {
	return fmt.Sprintf("mongodb://%s:%s@%s:%d/?authSource=admin",
		url.QueryEscape(inst.Username), url.QueryEscape(password), p.opts.Host, inst.HostPort)
}

func (p *MongoDBProvider) ping(ctx context.Context, inst *instance.Instance, password string) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(p.uri(inst, password)))
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)
	return client.Ping(ctx, readpref.Primary())
}

// ExecuteQuery runs the statement as a database command. The statement is
// an extended-JSON command document, e.g. {"find": "students"} or
// {"insert": "students", "documents": [...]}. Cursor-bearing replies are
// unwrapped into rows; anything else comes back as a single reply row.
func (p *MongoDBProvider) ExecuteQuery(ctx context.Context, inst *instance.Instance, statement, password string) *QueryResult {
	var cmd bson.D
	if err := bson.UnmarshalExtJSON([]byte(statement), false, &cmd); err != nil {
		return Fail("MongoDB error: invalid command document: %v", err)
	}
	if len(cmd) == 0 {
		return Fail("MongoDB error: empty command document")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(p.uri(inst, password)))
	if err != nil {
		return Fail("MongoDB error: %v", err)
	}
	defer client.Disconnect(ctx)

	var reply bson.D
	if err := client.Database(inst.Name).RunCommand(ctx, cmd).Decode(&reply); err != nil {
		return Fail("MongoDB error: %v", err)
	}

	if batch, ok := cursorBatch(reply); ok {
		columns, rows := documentsToRows(batch)
		return OK("command successful (MongoDB)", columns, rows)
	}

	columns, row := documentToRow(reply)
	return OK("command successful (MongoDB)", columns, []map[string]any{row})
}

// cursorBatch extracts cursor.firstBatch from a command reply, if present.
func cursorBatch(reply bson.D) ([]bson.D, bool) {
	for _, elem := range reply {
		if elem.Key != "cursor" {
			continue
		}
		cursor, ok := elem.Value.(bson.D)
		if !ok {
			return nil, false
		}
		for _, c := range cursor {
			if c.Key != "firstBatch" {
				continue
			}
			arr, ok := c.Value.(primitive.A)
			if !ok {
				return nil, false
			}
			batch := make([]bson.D, 0, len(arr))
			for _, item := range arr {
				doc, ok := item.(bson.D)
				if !ok {
					return nil, false
				}
				batch = append(batch, doc)
			}
			return batch, true
		}
	}
	return nil, false
}

// documentsToRows converts a batch of documents, using the first document's
// field order as the column order.
func documentsToRows(docs []bson.D) ([]string, []map[string]any) {
	rows := make([]map[string]any, 0, len(docs))
	var columns []string
	for i, doc := range docs {
		cols, row := documentToRow(doc)
		if i == 0 {
			columns = cols
		}
		rows = append(rows, row)
	}
	return columns, rows
}

// documentToRow flattens a document into a column list and a value map.
func documentToRow(doc bson.D) ([]string, map[string]any) {
	columns := make([]string, 0, len(doc))
	row := make(map[string]any, len(doc))
	for _, elem := range doc {
		columns = append(columns, elem.Key)
		row[elem.Key] = normalizeBSON(elem.Value)
	}
	return columns, row
}

// normalizeBSON converts BSON values into JSON-friendly ones.
func normalizeBSON(v any) any {
	switch val := v.(type) {
	case nil, primitive.Null:
		return nil
	case bson.D:
		_, m := documentToRow(val)
		return m
	case primitive.A:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, normalizeBSON(item))
		}
		return out
	case primitive.ObjectID:
		return val.Hex()
	default:
		return val
	}
}
