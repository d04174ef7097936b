package payments

import (
	"context"
	"errors"
	"sort"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// tableMock keeps payments keyed by payment_id and answers GSI queries by scanning.
type tableMock struct {
	mu         sync.Mutex
	table      map[string]map[string]types.AttributeValue
	putCalls   int
	queryCalls int
	lastQuery  *dyn.QueryInput
}

func newTableMock() *tableMock {
	return &tableMock{table: map[string]map[string]types.AttributeValue{}}
}

func (m *tableMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	k, ok := params.Item["payment_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing payment_id")
	}
	m.table[k.Value] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *tableMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := params.Key["payment_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing payment_id")
	}
	return &dyn.GetItemOutput{Item: m.table[k.Value]}, nil
}

func (m *tableMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return nil, errors.New("UpdateItem not supported by payments mock")
}

func (m *tableMock) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	m.lastQuery = params
	attr := params.ExpressionAttributeNames["#k"]
	want := params.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS).Value

	keys := make([]string, 0, len(m.table))
	for k := range m.table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var items []map[string]types.AttributeValue
	for _, k := range keys {
		item := m.table[k]
		if v, ok := item[attr].(*types.AttributeValueMemberS); ok && v.Value == want {
			items = append(items, item)
		}
	}
	return &dyn.QueryOutput{Items: items, Count: int32(len(items))}, nil
}
