// Package diff computes the ordered list of operations that turns one schema
// model into another.
//
// Operations are a tagged variant: Kind says which fields are populated and
// Destructive says whether applying it can discard stored data. The order of
// the returned operations respects dependencies, so a generator can emit SQL
// for them one by one:
//
//  1. DropForeignKey
//  2. DropIndex
//  3. CreateTable (referenced tables first; recreated tables are dropped
//     immediately before being created again)
//  4. AddColumn and AlterColumn
//  5. AddIndex
//  6. AddForeignKey
//  7. DropColumn
//  8. DropTable
//  9. InsertData, UpdateData and DeleteData for seed rows
//
// Example usage:
//
//	ops := diff.Diff(prior, desired)
//	for _, op := range ops {
//		if op.Destructive {
//			fmt.Println("destructive:", op)
//		}
//	}
package diff
