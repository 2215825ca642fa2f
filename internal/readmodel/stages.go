// Package readmodel はチャンネルプロフィールと視聴履歴の読み取りモデルを構築する。
// どちらのビルダーも注入されたdocstore.Storeだけを保持し、並行利用に対して安全。
package readmodel

import "github.com/hitoshi/vidtube/internal/docstore"

// 集約結果のフィールド名
const (
	fieldSubscribers       = "subscribers"
	fieldSubscribersCount  = "subscribersCount"
	fieldSubscribedToCount = "channelsSubscribedToCount"
	fieldIsSubscribed      = "isSubscribed"
	fieldOwner             = "owner"
	fieldOwnerDocs         = "ownerDocs"
	fieldOwnerSummary      = "ownerSummary"
)

// matchBy は単一フィールドの一致条件でMatchステージを作る。
func matchBy(field string, value any) docstore.Match {
	return docstore.Match{Filter: docstore.Filter{docstore.Eq(field, value)}}
}

// matchIn はフィールドが値のいずれかに一致するMatchステージを作る。
func matchIn(field string, values []string) docstore.Match {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return docstore.Match{Filter: docstore.Filter{docstore.In(field, vs...)}}
}

// countEdges は購読関係をforeignFieldごとに数えるLookupCountステージを作る。
func countEdges(foreignField, as string) docstore.LookupCount {
	return docstore.LookupCount{
		From:         docstore.CollectionSubscriptions,
		LocalField:   docstore.IDField,
		ForeignField: foreignField,
		As:           as,
	}
}

// lookupViewerEdge はviewerIDからチャンネルへの購読関係だけを結合するLookupステージを作る。
func lookupViewerEdge(viewerID string) docstore.Lookup {
	return docstore.Lookup{
		From:         docstore.CollectionSubscriptions,
		LocalField:   docstore.IDField,
		ForeignField: "channel",
		As:           fieldSubscribers,
		Filter:       docstore.Filter{docstore.Eq("subscriber", viewerID)},
	}
}

// lookupOwner は動画の所有者を要約フィールドだけに絞ってfieldOwnerDocsへ結合する。
// 所有者IDを保持するfieldOwnerは上書きしない。
func lookupOwner() docstore.Lookup {
	return docstore.Lookup{
		From:         docstore.CollectionUsers,
		LocalField:   fieldOwner,
		ForeignField: docstore.IDField,
		As:           fieldOwnerDocs,
		Pipeline: docstore.Pipeline{
			docstore.Project{Fields: []string{"fullName", "avatar", "username"}},
		},
	}
}

// viewerValue は閲覧者IDを式の値に変換する。空文字列は未ログインを表しnilになる。
func viewerValue(viewerID string) any {
	if viewerID == "" {
		return nil
	}
	return viewerID
}
