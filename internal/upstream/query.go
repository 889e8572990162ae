package upstream

// SelectProjectQuery fetches one project's full metadata tree. Only the id
// variable changes between requests.
const SelectProjectQuery = `
query SELECT_PROJECT($id: ID!, $groupId: ID) {
    project(id: $id, groupId: $groupId) {
        id
        name
        user {
            id
            nickname
            profileImage {
                id
                name
                label { ko en ja vn }
                filename
                imageType
                dimension { width height }
                trimmed { filename width height }
            }
            status { following follower }
            description
            role
            mark {
                id
                name
                label { ko en ja vn }
                filename
                imageType
                dimension { width height }
                trimmed { filename width height }
            }
        }
        thumb
        isopen
        showComment
        blamed
        isPracticalCourse
        category
        categoryCode
        created
        updated
        special
        isForLecture
        isForStudy
        isForSubmit
        hashId
        complexity
        staffPicked
        ranked
        visit
        likeCnt
        comment
        favorite
        shortenUrl
        parent { id name user { id nickname } }
        description
        description2
        description3
        hasRealTimeVariable
        blockCategoryUsage
        childCnt
        commentGroup { group count }
        likeCntGroup { group count }
        visitGroup { group count }
        recentGroup { group count }
        published
        isFirstPublish
        tags
        speed
        objects
        variables
        submitId { id }
        cloudVariable
        messages
        functions
        tables
        scenes
        realTimeVariable {
            variableType
            key
            value
            array { key data }
            minValue
            maxValue
            visible
            x
            y
            width
            height
            object
        }
        learning
        expansionBlocks
        aiUtilizeBlocks
        hardwareLiteBlocks
    }
}
`
